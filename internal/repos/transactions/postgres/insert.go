package transactions

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/infra/pgutils"
	"github.com/fastprodman/fortunefloor/internal/repos/transactions"
)

func (r *transactionsRepo) Insert(tx *sql.Tx, e *domain.LedgerEntry) error {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		e.ID, e.OperationID, e.UserID, e.MachineID, string(e.Type), e.Amount, e.TaxAmount, e.TaxRate,
		e.NetAmount, e.FromFresh, e.FromProfit, string(raw), e.CreatedAt,
	)
	if err != nil {
		if pgutils.IsUniqueViolation(err, "ledger_entries_operation_uq") {
			return transactions.ErrDuplicateTransaction
		}

		return fmt.Errorf("insert ledger entry: %w", err)
	}

	return nil
}
