package pricing

import (
	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type EarlySaleQuote struct {
	ProgressPercent   decimal.Decimal `json:"progressPercent"`
	CommissionRate    decimal.Decimal `json:"commissionRate"`
	CoinBox           decimal.Decimal `json:"coinBox"`
	ProfitInBox       decimal.Decimal `json:"profitInBox"`
	PrincipalInBox    decimal.Decimal `json:"principalInBox"`
	PrincipalNotInBox decimal.Decimal `json:"principalNotInBox"`
	PrincipalReturned decimal.Decimal `json:"principalReturned"`
	Commission        decimal.Decimal `json:"commission"`
	TotalReturned     decimal.Decimal `json:"totalReturned"`
}

// Progress is the share of the profit entitlement already paid out, in percent.
// Machines without profit count as fully progressed.
func Progress(m *domain.Machine) decimal.Decimal {
	if !m.ProfitAmount.IsPositive() {
		return hundred
	}

	return m.ProfitPaidOut.Div(m.ProfitAmount).Mul(hundred)
}

// EarlySale prices selling m back before expiry. The coin box is paid in full and
// the principal still inside the machine is returned minus the progress commission.
func EarlySale(m *domain.Machine, st accrual.State, bands []Band) EarlySaleQuote {
	progress := Progress(m)
	rate := RateFor(bands, progress)

	notInBox := st.PrincipalRemaining.Sub(st.CurrentPrincipalPortion)
	if notInBox.IsNegative() {
		notInBox = decimal.Zero
	}

	returned := notInBox.Mul(decimal.NewFromInt(1).Sub(rate))

	return EarlySaleQuote{
		ProgressPercent:   progress,
		CommissionRate:    rate,
		CoinBox:           st.CoinBoxCurrent,
		ProfitInBox:       st.CurrentProfitPortion,
		PrincipalInBox:    st.CurrentPrincipalPortion,
		PrincipalNotInBox: notInBox,
		PrincipalReturned: returned,
		Commission:        notInBox.Sub(returned),
		TotalReturned:     st.CoinBoxCurrent.Add(returned),
	}
}
