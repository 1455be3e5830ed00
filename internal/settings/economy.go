package settings

import (
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/gamble"
	"github.com/fastprodman/fortunefloor/internal/pricing"
	"github.com/shopspring/decimal"
)

// Economy holds every admin-tunable number of the machine economy.
// Values handed out by Provider are shared and must not be modified.
type Economy struct {
	MaxGlobalTier            int                     `yaml:"max_global_tier"`
	ReinvestReduction        map[int]decimal.Decimal `yaml:"reinvest_reduction"`
	ReinvestReductionDefault decimal.Decimal         `yaml:"reinvest_reduction_default"`
	EarlySaleBands           []pricing.Band          `yaml:"early_sale_bands"`
	AuctionBands             []pricing.Band          `yaml:"auction_bands"`
	PawnshopCommissionRate   decimal.Decimal         `yaml:"pawnshop_commission_rate"`
	Collector                Collector               `yaml:"collector"`
	Gamble                   Gamble                  `yaml:"gamble"`
	Overclock                []OverclockLevel        `yaml:"overclock"`
	CoinBox                  []CoinBoxLevel          `yaml:"coin_box"`
	TierUnlockFeePercent     decimal.Decimal         `yaml:"tier_unlock_fee_percent"`
}

type Collector struct {
	HirePercent   decimal.Decimal `yaml:"hire_percent"`
	SalaryPercent decimal.Decimal `yaml:"salary_percent"`
}

type Gamble struct {
	WinMultiplier  decimal.Decimal `yaml:"win_multiplier"`
	LoseMultiplier decimal.Decimal `yaml:"lose_multiplier"`
	Levels         []gamble.Level  `yaml:"levels"`
}

type OverclockLevel struct {
	Multiplier  decimal.Decimal `yaml:"multiplier"`
	CostPercent decimal.Decimal `yaml:"cost_percent"`
}

// CoinBoxLevel is one row of the capacity schedule. Level 1 is the box every
// machine starts with.
type CoinBoxLevel struct {
	Level         int             `yaml:"level" json:"level"`
	CapacityHours int             `yaml:"capacity_hours" json:"capacityHours"`
	CostPercent   decimal.Decimal `yaml:"cost_percent" json:"costPercent"`
}

// ReinvestReductionFor is the profit reduction applied to the given purchase round.
func (e *Economy) ReinvestReductionFor(round int) decimal.Decimal {
	r, ok := e.ReinvestReduction[round]
	if !ok {
		return e.ReinvestReductionDefault
	}

	return r
}

func (e *Economy) OverclockLevel(multiplier decimal.Decimal) (OverclockLevel, bool) {
	for _, l := range e.Overclock {
		if l.Multiplier.Equal(multiplier) {
			return l, true
		}
	}

	return OverclockLevel{}, false
}

func (e *Economy) CoinBoxLevel(level int) (CoinBoxLevel, bool) {
	for _, l := range e.CoinBox {
		if l.Level == level {
			return l, true
		}
	}

	return CoinBoxLevel{}, false
}

var errInvalidEconomy = errors.New("invalid economy settings")

// Validate rejects tables the engine cannot price with.
func (e *Economy) Validate() error {
	one := decimal.NewFromInt(1)

	if len(e.EarlySaleBands) == 0 || len(e.AuctionBands) == 0 {
		return fmt.Errorf("%w: commission bands are empty", errInvalidEconomy)
	}

	for _, b := range append(append([]pricing.Band{}, e.EarlySaleBands...), e.AuctionBands...) {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return fmt.Errorf("%w: band rate %s outside [0, 1]", errInvalidEconomy, b.Rate)
		}
	}

	if e.PawnshopCommissionRate.IsNegative() || e.PawnshopCommissionRate.GreaterThan(one) {
		return fmt.Errorf("%w: pawnshop commission %s outside [0, 1]", errInvalidEconomy, e.PawnshopCommissionRate)
	}

	if !e.Gamble.WinMultiplier.GreaterThan(one) {
		return fmt.Errorf("%w: win multiplier must be above 1", errInvalidEconomy)
	}

	if !e.Gamble.LoseMultiplier.IsPositive() || !e.Gamble.LoseMultiplier.LessThan(one) {
		return fmt.Errorf("%w: lose multiplier must be in (0, 1)", errInvalidEconomy)
	}

	if len(e.Gamble.Levels) == 0 {
		return fmt.Errorf("%w: gamble level table is empty", errInvalidEconomy)
	}

	for i, l := range e.Gamble.Levels {
		if l.Level != i {
			return fmt.Errorf("%w: gamble levels must run 0..n in order", errInvalidEconomy)
		}

		if l.WinChance.IsNegative() || l.WinChance.GreaterThan(one) {
			return fmt.Errorf("%w: win chance %s outside [0, 1]", errInvalidEconomy, l.WinChance)
		}
	}

	for _, l := range e.Overclock {
		if !l.Multiplier.GreaterThan(one) {
			return fmt.Errorf("%w: overclock multiplier %s must be above 1", errInvalidEconomy, l.Multiplier)
		}
	}

	prevHours := 0
	for i, l := range e.CoinBox {
		if l.Level != i+1 {
			return fmt.Errorf("%w: coin box levels must run 1..n in order", errInvalidEconomy)
		}

		if l.CapacityHours <= prevHours {
			return fmt.Errorf("%w: coin box level %d must hold more than the previous one", errInvalidEconomy, l.Level)
		}
		prevHours = l.CapacityHours

		if l.CostPercent.IsNegative() {
			return fmt.Errorf("%w: coin box level %d has a negative cost", errInvalidEconomy, l.Level)
		}
	}

	if e.TierUnlockFeePercent.IsNegative() {
		return fmt.Errorf("%w: tier unlock fee %s is negative", errInvalidEconomy, e.TierUnlockFeePercent)
	}

	return nil
}
