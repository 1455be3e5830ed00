package machines

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// HasRunningOfTier counts listed machines too: they still occupy the tier slot.
func (r *machinesRepo) HasRunningOfTier(tx *sql.Tx, ownerID uint64, tier int) (bool, error) {
	var exists bool

	err := tx.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM machines
			WHERE owner_id = $1 AND tier = $2 AND status IN ('active', 'listed_auction')
		)
	`, ownerID, tier).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check running machine: %w", err)
	}

	return exists, nil
}

func (r *machinesRepo) CountCompletedOfTier(tx *sql.Tx, ownerID uint64, tier int) (int, error) {
	var n int

	err := tx.QueryRow(`
		SELECT COUNT(*)
		FROM machines
		WHERE owner_id = $1
		  AND tier = $2
		  AND status IN ('expired', 'sold_early', 'sold_auction', 'sold_pawnshop')
	`, ownerID, tier).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed machines: %w", err)
	}

	return n, nil
}

func (r *machinesRepo) ListProfitSources(tx *sql.Tx, ownerID uint64, limit int) ([]uuid.UUID, error) {
	rows, err := tx.Query(`
		SELECT id
		FROM machines
		WHERE owner_id = $1
		  AND profit_paid_out > 0
		ORDER BY created_at, id
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list profit sources: %w", err)
	}

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan profit sources: %w", err)
	}

	return ids, nil
}
