package listings

import (
	"database/sql"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	"github.com/google/uuid"
)

var _ listings.Listings = (*listingsRepo)(nil)

type listingsRepo struct{ db *sql.DB }

func New(db *sql.DB) *listingsRepo {
	return &listingsRepo{db: db}
}

const listingColumns = `id, machine_id, seller_id, tier, wear_percent_at_listing,
		commission_rate_at_listing, expected_payout, gamble_level_at_listing,
		auto_collect_at_listing, status, buyer_id, new_machine_id, sold_at, created_at,
		coin_box_level_at_listing`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*domain.AuctionListing, error) {
	var (
		l        domain.AuctionListing
		statusDB string
		buyerID  sql.NullInt64
		newID    uuid.NullUUID
		soldAt   sql.NullTime
	)

	err := row.Scan(
		&l.ID, &l.MachineID, &l.SellerID, &l.Tier, &l.WearPercentAtListing,
		&l.CommissionRateAtListing, &l.ExpectedPayout, &l.GambleLevelAtListing,
		&l.AutoCollectAtListing, &statusDB, &buyerID, &newID, &soldAt, &l.CreatedAt,
		&l.CoinBoxLevelAtListing,
	)
	if err != nil {
		return nil, err
	}

	l.Status = domain.ListingStatus(statusDB)
	l.CreatedAt = l.CreatedAt.UTC()

	if buyerID.Valid {
		b := uint64(buyerID.Int64)
		l.BuyerID = &b
	}

	if newID.Valid {
		id := newID.UUID
		l.NewMachineID = &id
	}

	if soldAt.Valid {
		t := soldAt.Time.UTC()
		l.SoldAt = &t
	}

	return &l, nil
}

func scanListings(rows *sql.Rows) ([]*domain.AuctionListing, error) {
	//nolint:errcheck
	defer rows.Close()

	out := make([]*domain.AuctionListing, 0)

	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, l)
	}

	err := rows.Err()
	if err != nil {
		return nil, err
	}

	return out, nil
}
