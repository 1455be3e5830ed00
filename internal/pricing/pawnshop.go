package pricing

import (
	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

type PawnshopQuote struct {
	CommissionRate  decimal.Decimal `json:"commissionRate"`
	CollectedProfit decimal.Decimal `json:"collectedProfit"`
	Payout          decimal.Decimal `json:"payout"`
	CoinBox         decimal.Decimal `json:"coinBox"`
	ProfitInBox     decimal.Decimal `json:"profitInBox"`
	PrincipalInBox  decimal.Decimal `json:"principalInBox"`
	TotalReturned   decimal.Decimal `json:"totalReturned"`
	Available       bool            `json:"available"`
}

// Pawnshop prices an instant buyback. Profit already taken, including what sits
// in the box, is subtracted from the discounted price, so the offer disappears
// around breakeven.
func Pawnshop(m *domain.Machine, st accrual.State, commissionRate decimal.Decimal) PawnshopQuote {
	collected := m.ProfitPaidOut.Add(st.CurrentProfitPortion)
	payout := m.PurchasePrice.Mul(decimal.NewFromInt(1).Sub(commissionRate)).Sub(collected)

	q := PawnshopQuote{
		CommissionRate:  commissionRate,
		CollectedProfit: collected,
		Payout:          payout,
		CoinBox:         st.CoinBoxCurrent,
		ProfitInBox:     st.CurrentProfitPortion,
		PrincipalInBox:  st.CurrentPrincipalPortion,
		Available:       m.Status == domain.StatusActive && payout.IsPositive(),
	}

	if q.Available {
		q.TotalReturned = payout.Add(st.CoinBoxCurrent)
	}

	return q
}
