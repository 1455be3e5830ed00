package users

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

func (r *usersRepo) DeductTrackers(tx *sql.Tx, userID uint64, fromProfit, fromFresh decimal.Decimal) error {
	_, err := tx.Exec(`
		UPDATE users
		SET total_profit_collected = GREATEST(total_profit_collected - $2, 0),
		    total_fresh_deposits   = GREATEST(total_fresh_deposits - $3, 0)
		WHERE id = $1
	`, userID, fromProfit, fromFresh)
	if err != nil {
		return fmt.Errorf("deduct trackers: %w", err)
	}

	return nil
}
