package listings

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
)

func (r *listingsRepo) Update(tx *sql.Tx, l *domain.AuctionListing) error {
	res, err := tx.Exec(`
		UPDATE auction_listings
		SET status         = $2,
		    buyer_id       = $3,
		    new_machine_id = $4,
		    sold_at        = $5
		WHERE id = $1
	`, l.ID, string(l.Status), l.BuyerID, l.NewMachineID, l.SoldAt)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return listings.ErrListingNotFound
	}

	return nil
}
