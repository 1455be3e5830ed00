package listings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	"github.com/google/uuid"
)

func (r *listingsRepo) CountPending(ctx context.Context, tier int) (int, error) {
	var n int

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM auction_listings
		WHERE tier = $1 AND status = 'pending'
	`, tier).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending listings: %w", err)
	}

	return n, nil
}

func (r *listingsRepo) Position(ctx context.Context, id uuid.UUID) (int, error) {
	var pos int

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM auction_listings q
		JOIN auction_listings l ON l.id = $1 AND l.status = 'pending'
		WHERE q.tier = l.tier
		  AND q.status = 'pending'
		  AND (q.created_at, q.id) <= (l.created_at, l.id)
	`, id).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("queue position: %w", err)
	}

	if pos == 0 {
		return 0, listings.ErrListingNotFound
	}

	return pos, nil
}

func (r *listingsRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int, after uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id
		FROM auction_listings l
		JOIN machines m ON m.id = l.machine_id
		WHERE l.status = 'pending'
		  AND m.expires_at <= $1
		  AND l.id > $2
		ORDER BY l.id
		LIMIT $3
	`, now, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired listings: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan listing id: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate listing ids: %w", err)
	}

	return ids, nil
}

func (r *listingsRepo) QueueSummary(ctx context.Context) ([]listings.QueueStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tier, COUNT(*), MIN(created_at)
		FROM auction_listings
		WHERE status = 'pending'
		GROUP BY tier
		ORDER BY tier
	`)
	if err != nil {
		return nil, fmt.Errorf("queue summary: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]listings.QueueStat, 0)

	for rows.Next() {
		var (
			s      listings.QueueStat
			oldest sql.NullTime
		)

		err = rows.Scan(&s.Tier, &s.Pending, &oldest)
		if err != nil {
			return nil, fmt.Errorf("scan queue stat: %w", err)
		}

		if oldest.Valid {
			s.OldestAt = oldest.Time.UTC()
		}

		out = append(out, s)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate queue stats: %w", err)
	}

	return out, nil
}
