package domain

import "github.com/shopspring/decimal"

type User struct {
	ID                   uint64
	FortuneBalance       decimal.Decimal
	TotalFreshDeposits   decimal.Decimal
	TotalProfitCollected decimal.Decimal
	MaxTierReached       int
	MaxTierUnlocked      int
}
