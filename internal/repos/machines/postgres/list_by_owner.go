package machines

import (
	"context"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/lib/pq"
)

// ListByOwner returns the owner's machines, newest first. No statuses means all.
func (r *machinesRepo) ListByOwner(
	ctx context.Context,
	ownerID uint64,
	statuses ...domain.Status,
) ([]*domain.Machine, error) {
	filter := make([]string, 0, len(statuses))
	for _, s := range statuses {
		filter = append(filter, string(s))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+machineColumns+`
		FROM machines
		WHERE owner_id = $1
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY created_at DESC, id
	`, ownerID, pq.Array(filter))
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]*domain.Machine, 0)

	for rows.Next() {
		m, serr := scanMachine(rows)
		if serr != nil {
			return nil, fmt.Errorf("scan machine: %w", serr)
		}

		out = append(out, m)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate machines: %w", err)
	}

	return out, nil
}
