package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = fmt.Errorf("user balance: %w", domain.ErrInsufficientBalance)
	ErrUserNotFound      = fmt.Errorf("user %w", domain.ErrNotFound)
)

type Users interface {
	// Ensure creates the user row if it is missing.
	Ensure(tx *sql.Tx, userID uint64) error
	Exists(tx *sql.Tx, userID uint64) error
	Get(ctx context.Context, userID uint64) (*domain.User, error)
	LockAndGet(tx *sql.Tx, userID uint64) (*domain.User, error)
	IncreaseBalance(tx *sql.Tx, userID uint64, amount decimal.Decimal) error
	DecreaseBalance(tx *sql.Tx, userID uint64, amount decimal.Decimal) error
	// AddTrackers increments the fresh deposit and profit collected totals.
	AddTrackers(tx *sql.Tx, userID uint64, fresh, profit decimal.Decimal) error
	// DeductTrackers decrements both totals, never below zero.
	DeductTrackers(tx *sql.Tx, userID uint64, fromProfit, fromFresh decimal.Decimal) error
	RaiseMaxTier(tx *sql.Tx, userID uint64, tier int) error
	RaiseMaxTierUnlocked(tx *sql.Tx, userID uint64, tier int) error
}
