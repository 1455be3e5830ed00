package users

import (
	"database/sql"
	"fmt"
)

func (r *usersRepo) Ensure(tx *sql.Tx, userID uint64) error {
	_, err := tx.Exec(`
		INSERT INTO users (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	return nil
}
