package listings

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/infra/pgutils"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
)

func (r *listingsRepo) Insert(tx *sql.Tx, l *domain.AuctionListing) error {
	_, err := tx.Exec(`
		INSERT INTO auction_listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		l.ID, l.MachineID, l.SellerID, l.Tier, l.WearPercentAtListing,
		l.CommissionRateAtListing, l.ExpectedPayout, l.GambleLevelAtListing,
		l.AutoCollectAtListing, string(l.Status), l.BuyerID, l.NewMachineID, l.SoldAt, l.CreatedAt,
		l.CoinBoxLevelAtListing,
	)
	if err != nil {
		if pgutils.IsUniqueViolation(err, "auction_listings_pending_machine_uq") {
			return listings.ErrAlreadyListed
		}

		return fmt.Errorf("insert listing: %w", err)
	}

	return nil
}
