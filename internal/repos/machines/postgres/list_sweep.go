package machines

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListExpiring pages by id, so rows that keep failing do not hide the rest.
func (r *machinesRepo) ListExpiring(ctx context.Context, now time.Time, limit int, after uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM machines
		WHERE status = 'active'
		  AND expires_at <= $1
		  AND id > $2
		ORDER BY id
		LIMIT $3
	`, now, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list expiring machines: %w", err)
	}

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan expiring machines: %w", err)
	}

	return ids, nil
}

// ListAutoCollect pages by id so a long sweep does not revisit rows.
func (r *machinesRepo) ListAutoCollect(ctx context.Context, limit int, after uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM machines
		WHERE status = 'active'
		  AND auto_collect_enabled
		  AND id > $1
		ORDER BY id
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list auto-collect machines: %w", err)
	}

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan auto-collect machines: %w", err)
	}

	return ids, nil
}
