package users

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
)

func (r *usersRepo) LockAndGet(tx *sql.Tx, userID uint64) (*domain.User, error) {
	u, err := scanUser(tx.QueryRow(`
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}

		return nil, fmt.Errorf("lock/get user: %w", err)
	}

	return u, nil
}
