// Package accrual computes how much a machine has earned at a given instant.
//
// Stored coin box values are only checkpoints: every read recomputes the box from
// lastCalculatedAt, the rate and the capacity. Income stops at expiresAt and while
// the box is full; anything earned past capacity is lost.
package accrual

import (
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

// State is a machine's earnings snapshot at one instant.
type State struct {
	AccruedTotal            decimal.Decimal `json:"accruedTotal"`
	CoinBoxCurrent          decimal.Decimal `json:"coinBoxCurrent"`
	IsFull                  bool            `json:"isFull"`
	SecondsUntilFull        int64           `json:"secondsUntilFull"`
	IsExpired               bool            `json:"isExpired"`
	CanCollect              bool            `json:"canCollect"`
	CurrentProfitPortion    decimal.Decimal `json:"currentProfitPortion"`
	CurrentPrincipalPortion decimal.Decimal `json:"currentPrincipalPortion"`
	ProfitRemaining         decimal.Decimal `json:"profitRemaining"`
	PrincipalRemaining      decimal.Decimal `json:"principalRemaining"`
	IsBreakevenReached      bool            `json:"isBreakevenReached"`
}

// Compute returns the state of m at now. m is not modified.
func Compute(m *domain.Machine, now time.Time) State {
	now = domain.Truncate(now)

	st := State{
		ProfitRemaining:    nonNegative(m.ProfitAmount.Sub(m.ProfitPaidOut)),
		PrincipalRemaining: nonNegative(m.PurchasePrice.Sub(m.PrincipalPaidOut)),
		IsBreakevenReached: m.ProfitPaidOut.GreaterThanOrEqual(m.ProfitAmount),
	}

	if m.Status.Terminal() {
		st.CoinBoxCurrent = m.CoinBoxCurrent
		st.AccruedTotal = m.AccumulatedIncome.Add(m.CoinBoxCurrent)
		st.IsFull = m.CoinBoxCurrent.GreaterThanOrEqual(m.CoinBoxCapacity)
		st.IsExpired = true
		st.CanCollect = m.Status == domain.StatusExpired && m.CoinBoxCurrent.IsPositive()
		st.CurrentProfitPortion, st.CurrentPrincipalPortion = Split(m.CoinBoxCurrent, st.ProfitRemaining)

		return st
	}

	end := now
	if end.After(m.ExpiresAt) {
		end = m.ExpiresAt
	}

	income := m.RatePerSecond.Mul(Seconds(end.Sub(m.LastCalculatedAt)))
	raw := m.CoinBoxCurrent.Add(income)

	// rounding of the per-second rate must never pay out more than the machine yields
	yieldLeft := nonNegative(m.TotalYield.Sub(m.ProfitPaidOut).Sub(m.PrincipalPaidOut))
	limit := decimal.Min(m.CoinBoxCapacity, yieldLeft)

	// a box stopped by the yield cap is as full as it will get
	st.IsFull = raw.GreaterThanOrEqual(m.CoinBoxCapacity) ||
		(limit.IsPositive() && raw.GreaterThanOrEqual(limit))

	box := decimal.Min(raw, limit)

	st.CoinBoxCurrent = box
	st.AccruedTotal = m.AccumulatedIncome.Add(box)
	st.IsExpired = !now.Before(m.ExpiresAt)
	st.CanCollect = st.IsFull || st.IsExpired
	st.CurrentProfitPortion, st.CurrentPrincipalPortion = Split(box, st.ProfitRemaining)

	if !st.IsFull && !st.IsExpired && m.RatePerSecond.IsPositive() {
		until := limit.Sub(box).Div(m.RatePerSecond).Ceil()
		// a box that cannot fill before expiry stops filling at expiry
		st.SecondsUntilFull = decimal.Min(until, Seconds(m.ExpiresAt.Sub(now)).Ceil()).IntPart()
	}

	return st
}

// Split divides amount into profit and principal, profit first.
func Split(amount, profitRemaining decimal.Decimal) (profit, principal decimal.Decimal) {
	amount = nonNegative(amount)
	profit = decimal.Min(amount, nonNegative(profitRemaining))

	return profit, amount.Sub(profit)
}

// Checkpoint stores the recomputed box on m so that later reads start from at.
func Checkpoint(m *domain.Machine, st State, at time.Time) {
	m.CoinBoxCurrent = st.CoinBoxCurrent
	m.LastCalculatedAt = domain.Truncate(at)
}

// Drain empties the box of m after its contents were paid out and advances the
// payout counters by the profit/principal split of st.
func Drain(m *domain.Machine, st State, at time.Time) {
	m.AccumulatedIncome = m.AccumulatedIncome.Add(st.CoinBoxCurrent)
	m.CoinBoxCurrent = decimal.Zero
	m.LastCalculatedAt = domain.Truncate(at)
	m.ProfitPaidOut = m.ProfitPaidOut.Add(st.CurrentProfitPortion)
	m.PrincipalPaidOut = m.PrincipalPaidOut.Add(st.CurrentPrincipalPortion)
}

// Seconds converts d to fractional seconds at microsecond resolution.
// Negative durations count as zero.
func Seconds(d time.Duration) decimal.Decimal {
	if d <= 0 {
		return decimal.Zero
	}

	return decimal.New(d.Microseconds(), -6)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}

	return d
}
