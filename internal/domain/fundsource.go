package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundSource records what a machine was paid with.
// SourceMachineIDs is written once at creation.
type FundSource struct {
	MachineID           uuid.UUID
	FreshDepositAmount  decimal.Decimal
	ProfitDerivedAmount decimal.Decimal
	SourceMachineIDs    []uuid.UUID
	CreatedAt           time.Time
}

func (f *FundSource) Total() decimal.Decimal {
	return f.FreshDepositAmount.Add(f.ProfitDerivedAmount)
}
