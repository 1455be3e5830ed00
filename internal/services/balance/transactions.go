package balance

import (
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

// SourceType says where an external balance movement came from.
type SourceType string

const (
	SourcePayment SourceType = "payment"
	SourceServer  SourceType = "server"
	SourceBonus   SourceType = "bonus"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourcePayment, SourceServer, SourceBonus:
		return true
	default:
		return false
	}
}

type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
)

// Transaction is a deposit or withdrawal of FORTUNE from outside the game.
type Transaction struct {
	OperationID string
	UserID      uint64
	Source      SourceType
	Kind        Kind
	Amount      decimal.Decimal
}

var ErrInvalidTransaction = fmt.Errorf("invalid transaction: %w", domain.ErrInvalidState)

func (t Transaction) validate() error {
	if t.OperationID == "" {
		return fmt.Errorf("%w: missing operation id", ErrInvalidTransaction)
	}

	if !t.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidTransaction, t.Source)
	}

	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount %s must be positive", ErrInvalidTransaction, t.Amount)
	}

	if t.Kind != KindDeposit && t.Kind != KindWithdrawal {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTransaction, t.Kind)
	}

	return nil
}
