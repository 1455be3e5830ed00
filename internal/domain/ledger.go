package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryMachinePurchase   EntryType = "machine_purchase"
	EntryMachineIncome     EntryType = "machine_income"
	EntryEarlySale         EntryType = "machine_early_sale"
	EntryAuctionSale       EntryType = "auction_sale"
	EntryPawnshopSale      EntryType = "pawnshop_sale"
	EntryRiskyCollect      EntryType = "risky_collect"
	EntryGambleUpgrade     EntryType = "gamble_upgrade"
	EntryCollectorHire     EntryType = "collector_hire"
	EntryCollectorSalary   EntryType = "collector_salary"
	EntryOverclockPurchase EntryType = "overclock_purchase"
	EntryCoinBoxUpgrade    EntryType = "coin_box_upgrade"
	EntryTierUnlock        EntryType = "tier_unlock_purchase"
	EntryDeposit           EntryType = "deposit"
	EntryWithdrawal        EntryType = "withdrawal"
)

// LedgerEntry is one money movement. OperationID is unique across the ledger.
type LedgerEntry struct {
	ID          uuid.UUID
	OperationID string
	UserID      uint64
	MachineID   *uuid.UUID
	Type        EntryType
	Amount      decimal.Decimal
	TaxAmount   decimal.Decimal
	TaxRate     decimal.Decimal
	NetAmount   decimal.Decimal
	FromFresh   decimal.Decimal
	FromProfit  decimal.Decimal
	Metadata    map[string]any
	CreatedAt   time.Time
}
