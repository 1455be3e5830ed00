package listings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	"github.com/google/uuid"
)

func (r *listingsRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuctionListing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, `
		SELECT `+listingColumns+`
		FROM auction_listings
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, listings.ErrListingNotFound
		}

		return nil, fmt.Errorf("get listing: %w", err)
	}

	return l, nil
}

func (r *listingsRepo) FirstPending(ctx context.Context, tier int) (*domain.AuctionListing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, `
		SELECT `+listingColumns+`
		FROM auction_listings
		WHERE tier = $1 AND status = 'pending'
		ORDER BY created_at, id
		LIMIT 1
	`, tier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, listings.ErrListingNotFound
		}

		return nil, fmt.Errorf("first pending listing: %w", err)
	}

	return l, nil
}

func (r *listingsRepo) ListBySeller(ctx context.Context, sellerID uint64, limit int) ([]*domain.AuctionListing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM auction_listings
		WHERE seller_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, sellerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list seller listings: %w", err)
	}

	out, err := scanListings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan seller listings: %w", err)
	}

	return out, nil
}
