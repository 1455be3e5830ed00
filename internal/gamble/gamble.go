// Package gamble resolves risky double-or-nothing collections.
package gamble

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

// RollScale is the integer range a win chance is scaled to before rolling.
const RollScale = 1_000_000

// Level is one row of the win chance table.
type Level struct {
	Level       int             `yaml:"level" json:"level"`
	WinChance   decimal.Decimal `yaml:"win_chance" json:"winChance"`
	CostPercent decimal.Decimal `yaml:"cost_percent" json:"costPercent"`
}

type Roller interface {
	Roll(winChance decimal.Decimal) (bool, error)
}

// CryptoRoller draws from crypto/rand.
type CryptoRoller struct {
	src io.Reader
}

func NewCryptoRoller() *CryptoRoller {
	return &CryptoRoller{src: rand.Reader}
}

// Roll wins when a uniform integer in [0, RollScale) is below floor(winChance*RollScale).
func (r *CryptoRoller) Roll(winChance decimal.Decimal) (bool, error) {
	n, err := rand.Int(r.src, big.NewInt(RollScale))
	if err != nil {
		return false, fmt.Errorf("read random: %w", err)
	}

	return n.Int64() < Threshold(winChance), nil
}

// Threshold is the winning bound for winChance on the RollScale range.
func Threshold(winChance decimal.Decimal) int64 {
	return winChance.Mul(decimal.NewFromInt(RollScale)).Floor().IntPart()
}

type Outcome struct {
	Won         bool            `json:"won"`
	WinChance   decimal.Decimal `json:"winChance"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	FinalAmount decimal.Decimal `json:"finalAmount"`
}

// Delta is what the roll added to (positive) or took from (negative) the base.
func (o Outcome) Delta() decimal.Decimal {
	return o.FinalAmount.Sub(o.BaseAmount)
}

func Resolve(base, winChance, winMultiplier, loseMultiplier decimal.Decimal, won bool) Outcome {
	mult := loseMultiplier
	if won {
		mult = winMultiplier
	}

	return Outcome{
		Won:         won,
		WinChance:   winChance,
		Multiplier:  mult,
		BaseAmount:  base,
		FinalAmount: base.Mul(mult),
	}
}

// LevelFor returns the table row for level, falling back to the lowest level.
func LevelFor(levels []Level, level int) Level {
	var lowest Level
	for i, l := range levels {
		if l.Level == level {
			return l
		}

		if i == 0 || l.Level < lowest.Level {
			lowest = l
		}
	}

	return lowest
}

// NextLevel returns the row above current or ErrMaxLevelReached.
func NextLevel(levels []Level, current int) (Level, error) {
	for _, l := range levels {
		if l.Level == current+1 {
			return l, nil
		}
	}

	return Level{}, fmt.Errorf("gamble level %d: %w", current, domain.ErrMaxLevelReached)
}

// UpgradeCost is costPercent of the machine's purchase price.
func UpgradeCost(purchasePrice decimal.Decimal, next Level) decimal.Decimal {
	return purchasePrice.Mul(next.CostPercent).Div(decimal.NewFromInt(100))
}

// ExpectedValue is the average multiplier of one roll.
func ExpectedValue(winChance, winMultiplier, loseMultiplier decimal.Decimal) decimal.Decimal {
	lose := decimal.NewFromInt(1).Sub(winChance)

	return winChance.Mul(winMultiplier).Add(lose.Mul(loseMultiplier))
}
