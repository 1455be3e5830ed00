package listings

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	"github.com/google/uuid"
)

func (r *listingsRepo) LockByID(tx *sql.Tx, id uuid.UUID) (*domain.AuctionListing, error) {
	return lockOne(tx, "lock listing", `
		SELECT `+listingColumns+`
		FROM auction_listings
		WHERE id = $1
		FOR UPDATE
	`, id)
}

// LockFirstPending waits on a locked head instead of skipping it, so the queue stays FIFO.
func (r *listingsRepo) LockFirstPending(tx *sql.Tx, tier int) (*domain.AuctionListing, error) {
	return lockOne(tx, "lock first pending listing", `
		SELECT `+listingColumns+`
		FROM auction_listings
		WHERE tier = $1 AND status = 'pending'
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE
	`, tier)
}

func (r *listingsRepo) LockPendingByMachine(tx *sql.Tx, machineID uuid.UUID) (*domain.AuctionListing, error) {
	return lockOne(tx, "lock pending listing", `
		SELECT `+listingColumns+`
		FROM auction_listings
		WHERE machine_id = $1 AND status = 'pending'
		FOR UPDATE
	`, machineID)
}

func lockOne(tx *sql.Tx, op, query string, arg any) (*domain.AuctionListing, error) {
	l, err := scanListing(tx.QueryRow(query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, listings.ErrListingNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return l, nil
}
