package balance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/infra/metrics"
	"github.com/fastprodman/fortunefloor/internal/infra/pgutils"
	"github.com/fastprodman/fortunefloor/internal/notify"
	pgfundsources "github.com/fastprodman/fortunefloor/internal/repos/fundsources/postgres"
	"github.com/fastprodman/fortunefloor/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/fortunefloor/internal/repos/transactions/postgres"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
	pgusers "github.com/fastprodman/fortunefloor/internal/repos/users/postgres"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BalanceService struct {
	db       *sql.DB
	users    users.Users
	funds    *fundsource.Ledger
	txns     transactions.Transactions
	notifier notify.Sink
	now      func() time.Time
}

func New(dbx *sql.DB, sink notify.Sink) *BalanceService {
	if sink == nil {
		sink = notify.Nop{}
	}

	u := pgusers.New(dbx)

	return &BalanceService{
		db:       dbx,
		users:    u,
		funds:    fundsource.NewLedger(u, pgfundsources.New(dbx)),
		txns:     pgtransactions.New(dbx),
		notifier: sink,
		now:      time.Now,
	}
}

// ProcessTransaction runs the full flow in a single DB transaction:
//
// 1) Ensure user exists.
// 2) Move the balance (a withdrawal fails on insufficient funds).
// 3) Update the fresh/profit trackers.
// 4) Insert the ledger row (unique-violation -> ErrDuplicateOperation).
func (s *BalanceService) ProcessTransaction(ctx context.Context, t Transaction) (fundsource.Breakdown, error) {
	err := t.validate()
	if err != nil {
		return fundsource.Breakdown{}, err
	}

	now := domain.Truncate(s.now())
	start := time.Now()

	var b fundsource.Breakdown

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// 1) Ensure user exists
		err := s.users.Ensure(tx, t.UserID)
		if err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}

		typ := domain.EntryDeposit

		// 2) and 3)
		switch t.Kind {
		case KindDeposit:
			err = s.users.IncreaseBalance(tx, t.UserID, t.Amount)
			if err != nil {
				return fmt.Errorf("increase balance: %w", err)
			}

			err = s.funds.RecordFreshDeposit(tx, t.UserID, t.Amount)
			if err != nil {
				return err
			}

			b = fundsource.Breakdown{Fresh: t.Amount, Profit: decimal.Zero}

		case KindWithdrawal:
			typ = domain.EntryWithdrawal

			err = s.users.DecreaseBalance(tx, t.UserID, t.Amount)
			if err != nil {
				return fmt.Errorf("decrease balance: %w", err)
			}

			b, err = s.funds.RecordWithdrawal(tx, t.UserID, t.Amount)
			if err != nil {
				return fmt.Errorf("record withdrawal: %w", err)
			}
		}

		// 4) Insert ledger record
		err = s.txns.Insert(tx, &domain.LedgerEntry{
			ID:          uuid.New(),
			OperationID: t.OperationID,
			UserID:      t.UserID,
			Type:        typ,
			Amount:      t.Amount,
			TaxAmount:   decimal.Zero,
			TaxRate:     decimal.Zero,
			NetAmount:   t.Amount,
			FromFresh:   b.Fresh,
			FromProfit:  b.Profit,
			Metadata:    map[string]any{"source": string(t.Source)},
			CreatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		return nil
	})

	metrics.ObserveOperation(string(t.Kind), err, time.Since(start))

	if err != nil {
		return fundsource.Breakdown{}, fmt.Errorf("process transaction: %w", err)
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:   notify.EventBalanceChanged,
		UserID: t.UserID,
		Data:   map[string]any{"kind": string(t.Kind), "amount": t.Amount.String()},
		At:     now,
	})

	return b, nil
}

// GetBalance returns the user's balance and trackers (no locks; suitable for the GET endpoint).
func (s *BalanceService) GetBalance(ctx context.Context, userID uint64) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	return u, nil
}
