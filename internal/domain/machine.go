package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Machine struct {
	ID                  uuid.UUID
	OwnerID             uint64
	Tier                int
	PurchasePrice       decimal.Decimal
	TotalYield          decimal.Decimal
	ProfitAmount        decimal.Decimal
	LifespanDays        int
	StartedAt           time.Time
	ExpiresAt           time.Time
	RatePerSecond       decimal.Decimal
	CoinBoxCapacity     decimal.Decimal
	CoinBoxLevel        int
	CoinBoxCurrent      decimal.Decimal
	AccumulatedIncome   decimal.Decimal
	LastCalculatedAt    time.Time
	ProfitPaidOut       decimal.Decimal
	PrincipalPaidOut    decimal.Decimal
	ReinvestRound       int
	ProfitReductionRate decimal.Decimal
	AutoCollectEnabled  bool
	AutoCollectHiredAt  *time.Time
	GambleLevel         int
	OverclockMultiplier decimal.Decimal
	Status              Status
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewMachine builds a machine for tier t bought at now.
// reduction shrinks the profit part of the yield for repeat purchases of the same tier.
func NewMachine(ownerID uint64, t TierDefinition, reinvestRound int, reduction decimal.Decimal, now time.Time) *Machine {
	now = Truncate(now)
	lifespan := decimal.NewFromInt(t.LifespanSeconds())

	profit := t.GrossProfit().Mul(decimal.NewFromInt(1).Sub(reduction))
	if profit.IsNegative() {
		profit = decimal.Zero
	}

	totalYield := t.Price.Add(profit)
	rate := totalYield.Div(lifespan)
	m := &Machine{
		ID:                  uuid.New(),
		OwnerID:             ownerID,
		Tier:                t.Tier,
		PurchasePrice:       t.Price,
		TotalYield:          totalYield,
		ProfitAmount:        profit,
		LifespanDays:        t.LifespanDays,
		StartedAt:           now,
		ExpiresAt:           now.AddDate(0, 0, t.LifespanDays),
		RatePerSecond:       rate,
		CoinBoxLevel:        1,
		CoinBoxCurrent:      decimal.Zero,
		AccumulatedIncome:   decimal.Zero,
		LastCalculatedAt:    now,
		ProfitPaidOut:       decimal.Zero,
		PrincipalPaidOut:    decimal.Zero,
		ReinvestRound:       reinvestRound,
		ProfitReductionRate: reduction,
		OverclockMultiplier: decimal.Zero,
		Status:              StatusActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	m.CoinBoxCapacity = m.CapacityFor(t.CoinBoxCapacityHours)

	return m
}

// CapacityFor is how much the machine earns in the given number of hours.
func (m *Machine) CapacityFor(hours int) decimal.Decimal {
	return m.RatePerSecond.Mul(decimal.NewFromInt(int64(hours) * 3600))
}

// TransitionTo moves the machine to next or reports why it cannot.
func (m *Machine) TransitionTo(next Status) error {
	if !m.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: cannot move machine from %s to %s", ErrInvalidState, m.Status, next)
	}

	m.Status = next

	return nil
}

// HasOverclock reports whether a one-shot multiplier is waiting to be consumed.
func (m *Machine) HasOverclock() bool {
	return m.OverclockMultiplier.GreaterThan(decimal.Zero)
}

// Truncate drops precision below what the database stores.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
