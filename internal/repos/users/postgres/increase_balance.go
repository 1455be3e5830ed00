package users

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/repos/users"
	"github.com/shopspring/decimal"
)

func (r *usersRepo) IncreaseBalance(tx *sql.Tx, userID uint64, amount decimal.Decimal) error {
	res, err := tx.Exec(`
		UPDATE users
		SET fortune_balance = fortune_balance + $2
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("increase balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return users.ErrUserNotFound
	}

	return nil
}
