package users

import (
	"database/sql"
	"fmt"
)

// RaiseMaxTier never lowers the stored value.
func (r *usersRepo) RaiseMaxTier(tx *sql.Tx, userID uint64, tier int) error {
	_, err := tx.Exec(`
		UPDATE users
		SET max_tier_reached = GREATEST(max_tier_reached, $2)
		WHERE id = $1
	`, userID, tier)
	if err != nil {
		return fmt.Errorf("raise max tier: %w", err)
	}

	return nil
}

func (r *usersRepo) RaiseMaxTierUnlocked(tx *sql.Tx, userID uint64, tier int) error {
	_, err := tx.Exec(`
		UPDATE users
		SET max_tier_unlocked = GREATEST(max_tier_unlocked, $2)
		WHERE id = $1
	`, userID, tier)
	if err != nil {
		return fmt.Errorf("raise max tier unlocked: %w", err)
	}

	return nil
}
