package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Band applies Rate to values from From (inclusive) up to the next band's From.
type Band struct {
	From decimal.Decimal `yaml:"from"`
	Rate decimal.Decimal `yaml:"rate"`
}

// RateFor returns the rate of the last band whose lower bound is <= v.
// Values below the first band use the first band. An empty table charges everything.
func RateFor(bands []Band, v decimal.Decimal) decimal.Decimal {
	if len(bands) == 0 {
		return decimal.NewFromInt(1)
	}

	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From.LessThan(sorted[j].From) })

	rate := sorted[0].Rate
	for _, b := range sorted {
		if v.LessThan(b.From) {
			break
		}

		rate = b.Rate
	}

	return rate
}
