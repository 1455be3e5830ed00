// Package transactions stores the append-only ledger of money movements.
// The operation id of every entry is unique and doubles as the idempotency key.
package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
)

var ErrDuplicateTransaction = fmt.Errorf("ledger entry: %w", domain.ErrDuplicateOperation)

type Transactions interface {
	Insert(tx *sql.Tx, e *domain.LedgerEntry) error
	// ListByUser returns the newest entries first. No types means all.
	ListByUser(ctx context.Context, userID uint64, limit int, types ...domain.EntryType) ([]*domain.LedgerEntry, error)
}
