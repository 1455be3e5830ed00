package transactions

import (
	"database/sql"

	"github.com/fastprodman/fortunefloor/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

const entryColumns = `id, operation_id, user_id, machine_id, type, amount, tax_amount, tax_rate,
		net_amount, from_fresh, from_profit, metadata, created_at`
