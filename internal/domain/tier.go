package domain

import "github.com/shopspring/decimal"

const secondsPerDay = 86400

// TierDefinition is a catalog row. Machines snapshot its values at purchase.
type TierDefinition struct {
	Tier                 int
	Name                 string
	Price                decimal.Decimal
	LifespanDays         int
	YieldPercent         decimal.Decimal
	CoinBoxCapacityHours int
	Visible              bool
	PubliclyAvailable    bool
	SortOrder            int
}

// GrossProfit is the profit of a first-round machine of this tier.
func (t TierDefinition) GrossProfit() decimal.Decimal {
	return t.Price.Mul(t.YieldPercent).Div(decimal.NewFromInt(100)).Sub(t.Price)
}

func (t TierDefinition) LifespanSeconds() int64 {
	return int64(t.LifespanDays) * secondsPerDay
}
