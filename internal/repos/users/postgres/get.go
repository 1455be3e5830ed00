package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
)

func (r *usersRepo) Get(ctx context.Context, userID uint64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}
