package fundsource

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/fundsources"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger applies provenance changes inside the caller's transaction.
type Ledger struct {
	users   users.Users
	sources fundsources.FundSources
}

func NewLedger(u users.Users, fs fundsources.FundSources) *Ledger {
	return &Ledger{users: u, sources: fs}
}

// Create stores the fund source of a freshly bought machine.
func (l *Ledger) Create(tx *sql.Tx, machineID uuid.UUID, b Breakdown, sourceMachineIDs []uuid.UUID) error {
	ids := make([]uuid.UUID, len(sourceMachineIDs))
	copy(ids, sourceMachineIDs)

	err := l.sources.Insert(tx, &domain.FundSource{
		MachineID:           machineID,
		FreshDepositAmount:  b.Fresh,
		ProfitDerivedAmount: b.Profit,
		SourceMachineIDs:    ids,
	})
	if err != nil {
		return fmt.Errorf("insert fund source: %w", err)
	}

	return nil
}

func (l *Ledger) RecordProfitCollection(tx *sql.Tx, userID uint64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}

	err := l.users.AddTrackers(tx, userID, decimal.Zero, amount)
	if err != nil {
		return fmt.Errorf("record profit collection: %w", err)
	}

	return nil
}

func (l *Ledger) RecordFreshDeposit(tx *sql.Tx, userID uint64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}

	err := l.users.AddTrackers(tx, userID, amount, decimal.Zero)
	if err != nil {
		return fmt.Errorf("record fresh deposit: %w", err)
	}

	return nil
}

// PropagateMachineFundSourceToBalance books amount paid out of machineID with the
// machine's own fresh/profit mix.
func (l *Ledger) PropagateMachineFundSourceToBalance(
	tx *sql.Tx,
	userID uint64,
	machineID uuid.UUID,
	amount decimal.Decimal,
) (Breakdown, error) {
	if !amount.IsPositive() {
		return Breakdown{Fresh: decimal.Zero, Profit: decimal.Zero}, nil
	}

	fs, err := l.sources.GetByMachine(tx, machineID)
	if err != nil && !errors.Is(err, fundsources.ErrFundSourceNotFound) {
		return Breakdown{}, fmt.Errorf("get fund source: %w", err)
	}

	b := SplitBySource(fs, amount)

	err = l.users.AddTrackers(tx, userID, b.Fresh, b.Profit)
	if err != nil {
		return Breakdown{}, fmt.Errorf("propagate fund source: %w", err)
	}

	return b, nil
}

// RecordWithdrawal lowers the trackers of a locked user, profit first.
func (l *Ledger) RecordWithdrawal(tx *sql.Tx, userID uint64, amount decimal.Decimal) (Breakdown, error) {
	u, err := l.users.LockAndGet(tx, userID)
	if err != nil {
		return Breakdown{}, fmt.Errorf("lock user: %w", err)
	}

	b := WithdrawalBreakdown(u.TotalProfitCollected, u.TotalFreshDeposits, amount)
	if b.Total().IsZero() {
		return b, nil
	}

	err = l.users.DeductTrackers(tx, userID, b.Profit, b.Fresh)
	if err != nil {
		return Breakdown{}, fmt.Errorf("deduct trackers: %w", err)
	}

	return b, nil
}

// Credit pays amount to userID for machineID. Up to principal of it follows the
// machine's fund source, the rest is booked as profit. The balance and the
// trackers move together.
func (l *Ledger) Credit(
	tx *sql.Tx,
	userID uint64,
	machineID uuid.UUID,
	amount, principal decimal.Decimal,
) (Breakdown, error) {
	if !amount.IsPositive() {
		return Breakdown{Fresh: decimal.Zero, Profit: decimal.Zero}, nil
	}

	err := l.users.IncreaseBalance(tx, userID, amount)
	if err != nil {
		return Breakdown{}, fmt.Errorf("increase balance: %w", err)
	}

	principal = decimal.Min(nonNegative(principal), amount)
	profit := amount.Sub(principal)

	b, err := l.PropagateMachineFundSourceToBalance(tx, userID, machineID, principal)
	if err != nil {
		return Breakdown{}, err
	}

	err = l.RecordProfitCollection(tx, userID, profit)
	if err != nil {
		return Breakdown{}, err
	}

	return b.Add(Breakdown{Fresh: decimal.Zero, Profit: profit}), nil
}
