package users

import (
	"database/sql"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
)

var _ users.Users = (*usersRepo)(nil)

type usersRepo struct{ db *sql.DB }

func New(db *sql.DB) *usersRepo {
	return &usersRepo{db: db}
}

const userColumns = `id, fortune_balance, total_fresh_deposits, total_profit_collected,
		max_tier_reached, max_tier_unlocked`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := new(domain.User)

	err := row.Scan(
		&u.ID,
		&u.FortuneBalance,
		&u.TotalFreshDeposits,
		&u.TotalProfitCollected,
		&u.MaxTierReached,
		&u.MaxTierUnlocked,
	)
	if err != nil {
		return nil, err
	}

	return u, nil
}
