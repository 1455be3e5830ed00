package users

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

func (r *usersRepo) AddTrackers(tx *sql.Tx, userID uint64, fresh, profit decimal.Decimal) error {
	_, err := tx.Exec(`
		UPDATE users
		SET total_fresh_deposits   = total_fresh_deposits + $2,
		    total_profit_collected = total_profit_collected + $3
		WHERE id = $1
	`, userID, fresh, profit)
	if err != nil {
		return fmt.Errorf("add trackers: %w", err)
	}

	return nil
}
