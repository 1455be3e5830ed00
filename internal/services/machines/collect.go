package machines

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CollectResult struct {
	MachineID uuid.UUID
	// Box is what the coin box held. Credited differs from it only by a consumed overclock.
	Box              decimal.Decimal
	Credited         decimal.Decimal
	ProfitPortion    decimal.Decimal
	PrincipalPortion decimal.Decimal
	Overclock        decimal.Decimal
	Breakdown        fundsource.Breakdown
	Expired          bool
}

// Collect empties a full (or expired) coin box into the owner's balance.
// An expired machine with an empty box returns a zero result and writes nothing.
func (s *Service) Collect(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*CollectResult, error) {
	now := s.now()
	operationID = opID(operationID)

	var (
		res   *CollectResult
		entry *domain.LedgerEntry
	)

	err := s.run(ctx, "collect", func(tx *sql.Tx) error {
		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		res, entry, err = s.collectLocked(tx, m, now, operationID)
		if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	if entry != nil {
		s.afterCommit(ctx, notify.Event{
			Type:      notify.EventCollected,
			UserID:    userID,
			MachineID: machineID,
			Data:      map[string]any{"credited": res.Credited.String(), "expired": res.Expired},
			At:        now,
		}, entry, true)
	}

	return res, nil
}

func (s *Service) collectLocked(
	tx *sql.Tx,
	m *domain.Machine,
	now time.Time,
	operationID string,
) (*CollectResult, *domain.LedgerEntry, error) {
	err := domain.RequireStatus("collect", m.Status,
		domain.StatusActive, domain.StatusListedAuction, domain.StatusExpired)
	if err != nil {
		return nil, nil, err
	}

	st := accrual.Compute(m, now)
	res := &CollectResult{
		MachineID: m.ID,
		Box:       decimal.Zero,
		Credited:  decimal.Zero,
		Overclock: decimal.Zero,
		Expired:   st.IsExpired,
	}

	if m.Status == domain.StatusExpired && !st.CoinBoxCurrent.IsPositive() {
		return res, nil, nil
	}

	if !st.CanCollect {
		return nil, nil, fmt.Errorf("machine %s box is not full (%d s left): %w",
			m.ID, st.SecondsUntilFull, domain.ErrInvalidState)
	}

	res.Box = st.CoinBoxCurrent
	res.Credited = st.CoinBoxCurrent
	res.ProfitPortion = st.CurrentProfitPortion
	res.PrincipalPortion = st.CurrentPrincipalPortion

	if m.HasOverclock() {
		res.Overclock = m.OverclockMultiplier
		res.Credited = st.CoinBoxCurrent.Mul(m.OverclockMultiplier)
		m.OverclockMultiplier = decimal.Zero
	}

	accrual.Drain(m, st, now)

	if m.Status == domain.StatusActive && st.IsExpired {
		err = s.expireLocked(tx, m, now)
		if err != nil {
			return nil, nil, fmt.Errorf("expire machine: %w", err)
		}
	}

	err = s.machines.Update(tx, m)
	if err != nil {
		return nil, nil, fmt.Errorf("update machine: %w", err)
	}

	if !res.Credited.IsPositive() {
		return res, nil, nil
	}

	// the overclock bonus is not part of the machine and counts as profit
	res.Breakdown, err = s.funds.Credit(tx, m.OwnerID, m.ID, res.Credited, st.CurrentPrincipalPortion)
	if err != nil {
		return nil, nil, fmt.Errorf("credit owner: %w", err)
	}

	e := newEntry(operationID, m.OwnerID, m.ID, domain.EntryMachineIncome, res.Credited, res.Breakdown, now)
	e.Metadata["box"] = res.Box.String()
	e.Metadata["profit_portion"] = res.ProfitPortion.String()
	e.Metadata["principal_portion"] = res.PrincipalPortion.String()
	if res.Overclock.IsPositive() {
		e.Metadata["overclock"] = res.Overclock.String()
	}

	err = s.ledger.Insert(tx, e)
	if err != nil {
		return nil, nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	return res, e, nil
}
