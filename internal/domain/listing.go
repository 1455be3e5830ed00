package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuctionListing struct {
	ID                      uuid.UUID
	MachineID               uuid.UUID
	SellerID                uint64
	Tier                    int
	WearPercentAtListing    decimal.Decimal
	CommissionRateAtListing decimal.Decimal
	ExpectedPayout          decimal.Decimal
	GambleLevelAtListing    int
	AutoCollectAtListing    bool
	CoinBoxLevelAtListing   int
	Status                  ListingStatus
	BuyerID                 *uint64
	NewMachineID            *uuid.UUID
	SoldAt                  *time.Time
	CreatedAt               time.Time
}
