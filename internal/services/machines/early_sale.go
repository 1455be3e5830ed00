package machines

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/fastprodman/fortunefloor/internal/pricing"
	"github.com/google/uuid"
)

type EarlySaleResult struct {
	Quote     pricing.EarlySaleQuote
	Breakdown fundsource.Breakdown
}

// EarlySaleQuote prices selling the machine back now without selling it.
func (s *Service) EarlySaleQuote(ctx context.Context, userID uint64, machineID uuid.UUID) (*pricing.EarlySaleQuote, error) {
	m, err := s.getOwned(ctx, userID, machineID)
	if err != nil {
		return nil, fmt.Errorf("get machine: %w", err)
	}

	q := pricing.EarlySale(m, accrual.Compute(m, s.now()), s.econ.Economy(ctx).EarlySaleBands)

	return &q, nil
}

// SellEarly sells an active machine back to the house. The coin box is paid in
// full, the principal still inside the machine minus the progress commission.
func (s *Service) SellEarly(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*EarlySaleResult, error) {
	now := s.now()
	econ := s.econ.Economy(ctx)
	operationID = opID(operationID)

	var (
		res   EarlySaleResult
		entry *domain.LedgerEntry
	)

	err := s.run(ctx, "sell_early", func(tx *sql.Tx) error {
		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		err = domain.RequireStatus("sell early", m.Status, domain.StatusActive)
		if err != nil {
			return err
		}

		st := accrual.Compute(m, now)
		if st.IsExpired {
			return fmt.Errorf("sell early: machine %s reached its lifespan: %w", m.ID, domain.ErrInvalidState)
		}

		q := pricing.EarlySale(m, st, econ.EarlySaleBands)

		accrual.Drain(m, st, now)
		m.PrincipalPaidOut = m.PrincipalPaidOut.Add(q.PrincipalReturned)

		err = m.TransitionTo(domain.StatusSoldEarly)
		if err != nil {
			return err
		}

		err = s.machines.Update(tx, m)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		b, err := s.funds.Credit(tx, userID, m.ID, q.TotalReturned, q.PrincipalInBox.Add(q.PrincipalReturned))
		if err != nil {
			return fmt.Errorf("credit owner: %w", err)
		}

		e := newEntry(operationID, userID, m.ID, domain.EntryEarlySale, q.CoinBox.Add(q.PrincipalNotInBox), b, now)
		e.TaxAmount = q.Commission
		e.TaxRate = q.CommissionRate
		e.NetAmount = q.TotalReturned
		e.Metadata["progress_percent"] = q.ProgressPercent.StringFixed(2)
		e.Metadata["box"] = q.CoinBox.String()
		e.Metadata["principal_returned"] = q.PrincipalReturned.String()

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		res = EarlySaleResult{Quote: q, Breakdown: b}
		entry = e

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sell early: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventSoldEarly,
		UserID:    userID,
		MachineID: machineID,
		Data:      map[string]any{"total_returned": res.Quote.TotalReturned.String()},
		At:        now,
	}, entry, true)

	return &res, nil
}
