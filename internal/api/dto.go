package api

import (
	"time"

	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/services/machines"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type tierDTO struct {
	Tier                 int             `json:"tier"`
	Name                 string          `json:"name"`
	Price                decimal.Decimal `json:"price"`
	LifespanDays         int             `json:"lifespanDays"`
	YieldPercent         decimal.Decimal `json:"yieldPercent"`
	CoinBoxCapacityHours int             `json:"coinBoxCapacityHours"`
	PubliclyAvailable    bool            `json:"publiclyAvailable"`
}

func toTierDTO(t domain.TierDefinition) tierDTO {
	return tierDTO{
		Tier:                 t.Tier,
		Name:                 t.Name,
		Price:                t.Price,
		LifespanDays:         t.LifespanDays,
		YieldPercent:         t.YieldPercent,
		CoinBoxCapacityHours: t.CoinBoxCapacityHours,
		PubliclyAvailable:    t.PubliclyAvailable,
	}
}

type userDTO struct {
	UserID               uint64          `json:"userId"`
	Balance              decimal.Decimal `json:"balance"`
	TotalFreshDeposits   decimal.Decimal `json:"totalFreshDeposits"`
	TotalProfitCollected decimal.Decimal `json:"totalProfitCollected"`
	MaxTierReached       int             `json:"maxTierReached"`
	MaxTierUnlocked      int             `json:"maxTierUnlocked"`
}

func toUserDTO(u *domain.User) userDTO {
	return userDTO{
		UserID:               u.ID,
		Balance:              u.FortuneBalance,
		TotalFreshDeposits:   u.TotalFreshDeposits,
		TotalProfitCollected: u.TotalProfitCollected,
		MaxTierReached:       u.MaxTierReached,
		MaxTierUnlocked:      u.MaxTierUnlocked,
	}
}

type machineDTO struct {
	ID                  uuid.UUID       `json:"id"`
	OwnerID             uint64          `json:"ownerId"`
	Tier                int             `json:"tier"`
	Status              domain.Status   `json:"status"`
	PurchasePrice       decimal.Decimal `json:"purchasePrice"`
	TotalYield          decimal.Decimal `json:"totalYield"`
	ProfitAmount        decimal.Decimal `json:"profitAmount"`
	LifespanDays        int             `json:"lifespanDays"`
	StartedAt           time.Time       `json:"startedAt"`
	ExpiresAt           time.Time       `json:"expiresAt"`
	RatePerSecond       decimal.Decimal `json:"ratePerSecond"`
	CoinBoxCapacity     decimal.Decimal `json:"coinBoxCapacity"`
	CoinBoxLevel        int             `json:"coinBoxLevel"`
	ProfitPaidOut       decimal.Decimal `json:"profitPaidOut"`
	PrincipalPaidOut    decimal.Decimal `json:"principalPaidOut"`
	ReinvestRound       int             `json:"reinvestRound"`
	ProfitReductionRate decimal.Decimal `json:"profitReductionRate"`
	AutoCollectEnabled  bool            `json:"autoCollectEnabled"`
	GambleLevel         int             `json:"gambleLevel"`
	OverclockMultiplier decimal.Decimal `json:"overclockMultiplier"`
	State               *accrual.State  `json:"state,omitempty"`
}

func toMachineDTO(m *domain.Machine) machineDTO {
	return machineDTO{
		ID:                  m.ID,
		OwnerID:             m.OwnerID,
		Tier:                m.Tier,
		Status:              m.Status,
		PurchasePrice:       m.PurchasePrice,
		TotalYield:          m.TotalYield,
		ProfitAmount:        m.ProfitAmount,
		LifespanDays:        m.LifespanDays,
		StartedAt:           m.StartedAt,
		ExpiresAt:           m.ExpiresAt,
		RatePerSecond:       m.RatePerSecond,
		CoinBoxCapacity:     m.CoinBoxCapacity,
		CoinBoxLevel:        m.CoinBoxLevel,
		ProfitPaidOut:       m.ProfitPaidOut,
		PrincipalPaidOut:    m.PrincipalPaidOut,
		ReinvestRound:       m.ReinvestRound,
		ProfitReductionRate: m.ProfitReductionRate,
		AutoCollectEnabled:  m.AutoCollectEnabled,
		GambleLevel:         m.GambleLevel,
		OverclockMultiplier: m.OverclockMultiplier,
	}
}

func toViewDTO(v machines.View) machineDTO {
	d := toMachineDTO(v.Machine)
	st := v.State
	d.State = &st

	return d
}

type listingDTO struct {
	ID             uuid.UUID            `json:"id"`
	MachineID      uuid.UUID            `json:"machineId"`
	SellerID       uint64               `json:"sellerId"`
	Tier           int                  `json:"tier"`
	WearPercent    decimal.Decimal      `json:"wearPercent"`
	CommissionRate decimal.Decimal      `json:"commissionRate"`
	ExpectedPayout decimal.Decimal      `json:"expectedPayout"`
	CoinBoxLevel   int                  `json:"coinBoxLevel"`
	Status         domain.ListingStatus `json:"status"`
	BuyerID        *uint64              `json:"buyerId,omitempty"`
	SoldAt         *time.Time           `json:"soldAt,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
}

func toListingDTO(l *domain.AuctionListing) *listingDTO {
	if l == nil {
		return nil
	}

	return &listingDTO{
		ID:             l.ID,
		MachineID:      l.MachineID,
		SellerID:       l.SellerID,
		Tier:           l.Tier,
		WearPercent:    l.WearPercentAtListing,
		CommissionRate: l.CommissionRateAtListing,
		ExpectedPayout: l.ExpectedPayout,
		CoinBoxLevel:   l.CoinBoxLevelAtListing,
		Status:         l.Status,
		BuyerID:        l.BuyerID,
		SoldAt:         l.SoldAt,
		CreatedAt:      l.CreatedAt,
	}
}

type ledgerDTO struct {
	ID          uuid.UUID        `json:"id"`
	OperationID string           `json:"operationId"`
	MachineID   *uuid.UUID       `json:"machineId,omitempty"`
	Type        domain.EntryType `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	TaxAmount   decimal.Decimal  `json:"taxAmount"`
	TaxRate     decimal.Decimal  `json:"taxRate"`
	NetAmount   decimal.Decimal  `json:"netAmount"`
	FromFresh   decimal.Decimal  `json:"fromFresh"`
	FromProfit  decimal.Decimal  `json:"fromProfit"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func toLedgerDTO(e *domain.LedgerEntry) ledgerDTO {
	return ledgerDTO{
		ID:          e.ID,
		OperationID: e.OperationID,
		MachineID:   e.MachineID,
		Type:        e.Type,
		Amount:      e.Amount,
		TaxAmount:   e.TaxAmount,
		TaxRate:     e.TaxRate,
		NetAmount:   e.NetAmount,
		FromFresh:   e.FromFresh,
		FromProfit:  e.FromProfit,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

type upgradeDTO struct {
	Machine machineDTO      `json:"machine"`
	Cost    decimal.Decimal `json:"cost"`
}

func toUpgradeDTO(r *machines.UpgradeResult) upgradeDTO {
	return upgradeDTO{Machine: toMachineDTO(r.Machine), Cost: r.Cost}
}
