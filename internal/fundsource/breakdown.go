// Package fundsource tracks whether money came from fresh deposits or from
// profit. Withdrawals are taxed by that split, so every balance credit is
// paired with a tracker update here.
package fundsource

import (
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

// Breakdown splits an amount by provenance.
type Breakdown struct {
	Fresh  decimal.Decimal `json:"fresh"`
	Profit decimal.Decimal `json:"profit"`
}

func (b Breakdown) Total() decimal.Decimal {
	return b.Fresh.Add(b.Profit)
}

func (b Breakdown) Add(o Breakdown) Breakdown {
	return Breakdown{Fresh: b.Fresh.Add(o.Fresh), Profit: b.Profit.Add(o.Profit)}
}

// CalculateBreakdown splits amountToSpend pro rata to the fresh share of balance.
func CalculateBreakdown(balance, freshDepositTotal, amountToSpend decimal.Decimal) Breakdown {
	if !balance.IsPositive() || !amountToSpend.IsPositive() {
		return Breakdown{Fresh: decimal.Zero, Profit: decimal.Zero}
	}

	ratio := clampRatio(freshDepositTotal.Div(balance))
	fresh := amountToSpend.Mul(ratio)

	return Breakdown{Fresh: fresh, Profit: amountToSpend.Sub(fresh)}
}

// SplitBySource splits amount by the stored mix of fs. A missing or empty source
// is treated as all profit.
func SplitBySource(fs *domain.FundSource, amount decimal.Decimal) Breakdown {
	if !amount.IsPositive() {
		return Breakdown{Fresh: decimal.Zero, Profit: decimal.Zero}
	}

	if fs == nil || !fs.Total().IsPositive() {
		return Breakdown{Fresh: decimal.Zero, Profit: amount}
	}

	ratio := clampRatio(fs.FreshDepositAmount.Div(fs.Total()))
	fresh := amount.Mul(ratio)

	return Breakdown{Fresh: fresh, Profit: amount.Sub(fresh)}
}

// WithdrawalBreakdown takes from profit first and from fresh deposits only for
// the rest, capped at what the fresh total holds.
func WithdrawalBreakdown(profitTotal, freshTotal, amount decimal.Decimal) Breakdown {
	if !amount.IsPositive() {
		return Breakdown{Fresh: decimal.Zero, Profit: decimal.Zero}
	}

	fromProfit := decimal.Min(amount, nonNegative(profitTotal))
	fromFresh := decimal.Min(amount.Sub(fromProfit), nonNegative(freshTotal))

	return Breakdown{Fresh: fromFresh, Profit: fromProfit}
}

func clampRatio(r decimal.Decimal) decimal.Decimal {
	if r.IsNegative() {
		return decimal.Zero
	}

	one := decimal.NewFromInt(1)
	if r.GreaterThan(one) {
		return one
	}

	return r
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}

	return d
}
