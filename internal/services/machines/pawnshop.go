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
	"github.com/shopspring/decimal"
)

type PawnshopResult struct {
	Quote     pricing.PawnshopQuote
	Breakdown fundsource.Breakdown
}

// PawnshopQuote returns the current offer. An unavailable offer is not an error.
func (s *Service) PawnshopQuote(ctx context.Context, userID uint64, machineID uuid.UUID) (*pricing.PawnshopQuote, error) {
	m, err := s.getOwned(ctx, userID, machineID)
	if err != nil {
		return nil, fmt.Errorf("get machine: %w", err)
	}

	q := pricing.Pawnshop(m, accrual.Compute(m, s.now()), s.econ.Economy(ctx).PawnshopCommissionRate)

	return &q, nil
}

// SellToPawnshop sells an active machine for a discounted price minus the profit
// already taken out of it. The coin box is paid on top.
func (s *Service) SellToPawnshop(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*PawnshopResult, error) {
	now := s.now()
	econ := s.econ.Economy(ctx)
	operationID = opID(operationID)

	var (
		res   PawnshopResult
		entry *domain.LedgerEntry
	)

	err := s.run(ctx, "pawnshop", func(tx *sql.Tx) error {
		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		err = domain.RequireStatus("pawn", m.Status, domain.StatusActive)
		if err != nil {
			return err
		}

		st := accrual.Compute(m, now)
		if st.IsExpired {
			return fmt.Errorf("pawn: machine %s reached its lifespan: %w", m.ID, domain.ErrInvalidState)
		}

		q := pricing.Pawnshop(m, st, econ.PawnshopCommissionRate)
		if !q.Available {
			return fmt.Errorf("pawn machine %s: offer %s: %w", m.ID, q.Payout, domain.ErrUnavailable)
		}

		accrual.Drain(m, st, now)
		m.PrincipalPaidOut = decimal.Min(m.PrincipalPaidOut.Add(q.Payout), m.PurchasePrice)

		err = m.TransitionTo(domain.StatusSoldPawnshop)
		if err != nil {
			return err
		}

		err = s.machines.Update(tx, m)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		b, err := s.funds.Credit(tx, userID, m.ID, q.TotalReturned, q.PrincipalInBox.Add(q.Payout))
		if err != nil {
			return fmt.Errorf("credit owner: %w", err)
		}

		e := newEntry(operationID, userID, m.ID, domain.EntryPawnshopSale, m.PurchasePrice.Add(q.CoinBox), b, now)
		e.TaxRate = q.CommissionRate
		e.TaxAmount = m.PurchasePrice.Mul(q.CommissionRate)
		e.NetAmount = q.TotalReturned
		e.Metadata["collected_profit"] = q.CollectedProfit.String()
		e.Metadata["box"] = q.CoinBox.String()
		e.Metadata["payout"] = q.Payout.String()

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		res = PawnshopResult{Quote: q, Breakdown: b}
		entry = e

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sell to pawnshop: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventPawned,
		UserID:    userID,
		MachineID: machineID,
		Data:      map[string]any{"total_returned": res.Quote.TotalReturned.String()},
		At:        now,
	}, entry, true)

	return &res, nil
}
