package transactions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func (r *transactionsRepo) ListByUser(
	ctx context.Context,
	userID uint64,
	limit int,
	types ...domain.EntryType,
) ([]*domain.LedgerEntry, error) {
	filter := make([]string, 0, len(types))
	for _, t := range types {
		filter = append(filter, string(t))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1
		  AND (cardinality($2::text[]) = 0 OR type = ANY($2::text[]))
		ORDER BY created_at DESC, id
		LIMIT $3
	`, userID, pq.Array(filter), limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]*domain.LedgerEntry, 0)

	for rows.Next() {
		var (
			e         domain.LedgerEntry
			machineID uuid.NullUUID
			typ       string
			raw       []byte
		)

		err = rows.Scan(
			&e.ID, &e.OperationID, &e.UserID, &machineID, &typ, &e.Amount, &e.TaxAmount, &e.TaxRate,
			&e.NetAmount, &e.FromFresh, &e.FromProfit, &raw, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		e.Type = domain.EntryType(typ)

		if machineID.Valid {
			id := machineID.UUID
			e.MachineID = &id
		}

		if len(raw) > 0 {
			err = json.Unmarshal(raw, &e.Metadata)
			if err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", e.OperationID, err)
			}
		}

		out = append(out, &e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return out, nil
}
