package tiers

import (
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

const defaultCoinBoxHours = 12

var defaultRows = []struct {
	name     string
	price    int64
	lifespan int
	yield    int64
}{
	{"RUSTY LEVER", 10, 3, 145},
	{"LUCKY CHERRY", 30, 4, 152},
	{"GOLDEN 7s", 75, 5, 155},
	{"NEON NIGHTS", 200, 6, 154},
	{"DIAMOND DASH", 500, 7, 156},
	{"VEGAS QUEEN", 1500, 8, 156},
	{"PLATINUM RUSH", 4000, 10, 165},
	{"HIGH ROLLER", 12000, 11, 166},
	{"JACKPOT EMPEROR", 35000, 13, 172},
	{"FORTUNE KING", 100000, 14, 170},
}

// Defaults is the built-in catalog served when the database has none.
func Defaults() []domain.TierDefinition {
	out := make([]domain.TierDefinition, 0, len(defaultRows))
	for i, r := range defaultRows {
		out = append(out, domain.TierDefinition{
			Tier:                 i + 1,
			Name:                 r.name,
			Price:                decimal.NewFromInt(r.price),
			LifespanDays:         r.lifespan,
			YieldPercent:         decimal.NewFromInt(r.yield),
			CoinBoxCapacityHours: defaultCoinBoxHours,
			Visible:              true,
			PubliclyAvailable:    true,
			SortOrder:            i + 1,
		})
	}

	return out
}
