package machines

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/gamble"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/fastprodman/fortunefloor/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UpgradeResult reports a paid machine upgrade.
type UpgradeResult struct {
	Machine *domain.Machine
	Cost    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// UpgradeGamble buys the next row of the win chance table for the machine.
func (s *Service) UpgradeGamble(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*UpgradeResult, error) {
	now := s.now()
	levels := s.econ.Economy(ctx).Gamble.Levels
	operationID = opID(operationID)

	var (
		res   UpgradeResult
		entry *domain.LedgerEntry
	)

	err := s.run(ctx, "upgrade_gamble", func(tx *sql.Tx) error {
		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		err = domain.RequireStatus("upgrade gamble", m.Status, domain.StatusActive)
		if err != nil {
			return err
		}

		next, err := gamble.NextLevel(levels, m.GambleLevel)
		if err != nil {
			return err
		}

		cost := gamble.UpgradeCost(m.PurchasePrice, next)

		b, err := s.debit(tx, userID, cost)
		if err != nil {
			return fmt.Errorf("debit owner: %w", err)
		}

		m.GambleLevel = next.Level

		err = s.machines.Update(tx, m)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		e := newEntry(operationID, userID, m.ID, domain.EntryGambleUpgrade, cost, b, now)
		e.Metadata["level"] = next.Level
		e.Metadata["win_chance"] = next.WinChance.String()

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		res = UpgradeResult{Machine: m, Cost: cost}
		entry = e

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upgrade gamble: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventBalanceChanged,
		UserID:    userID,
		MachineID: machineID,
		Data:      map[string]any{"gamble_level": res.Machine.GambleLevel},
		At:        now,
	}, entry, false)

	return &res, nil
}

// HireCollector enables automatic collection for the rest of the machine's life.
func (s *Service) HireCollector(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*UpgradeResult, error) {
	now := s.now()
	hirePercent := s.econ.Economy(ctx).Collector.HirePercent
	operationID = opID(operationID)

	var (
		res   UpgradeResult
		entry *domain.LedgerEntry
	)

	err := s.run(ctx, "hire_collector", func(tx *sql.Tx) error {
		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		err = domain.RequireStatus("hire collector", m.Status, domain.StatusActive)
		if err != nil {
			return err
		}

		if m.AutoCollectEnabled {
			return fmt.Errorf("machine %s already has a collector: %w", m.ID, domain.ErrInvalidState)
		}

		t, err := s.catalog.Get(ctx, m.Tier)
		if err != nil {
			return fmt.Errorf("get tier: %w", err)
		}

		cost := t.GrossProfit().Mul(hirePercent).Div(hundred)

		b, err := s.debit(tx, userID, cost)
		if err != nil {
			return fmt.Errorf("debit owner: %w", err)
		}

		hiredAt := now
		m.AutoCollectEnabled = true
		m.AutoCollectHiredAt = &hiredAt

		err = s.machines.Update(tx, m)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		e := newEntry(operationID, userID, m.ID, domain.EntryCollectorHire, cost, b, now)
		e.Metadata["hire_percent"] = hirePercent.String()

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		res = UpgradeResult{Machine: m, Cost: cost}
		entry = e

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hire collector: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventCollectorHired,
		UserID:    userID,
		MachineID: machineID,
		Data:      map[string]any{"cost": res.Cost.String()},
		At:        now,
	}, entry, false)

	return &res, nil
}

// PurchaseOverclock arms a one-shot multiplier for the next collection.
func (s *Service) PurchaseOverclock(
	ctx context.Context,
	userID uint64,
	machineID uuid.UUID,
	multiplier decimal.Decimal,
	operationID string,
) (*UpgradeResult, error) {
	now := s.now()
	operationID = opID(operationID)

	lvl, ok := s.econ.Economy(ctx).OverclockLevel(multiplier)
	if !ok {
		return nil, fmt.Errorf("purchase overclock: multiplier %s: %w", multiplier, domain.ErrNotFound)
	}

	var (
		res   UpgradeResult
		entry *domain.LedgerEntry
	)

	err := s.run(ctx, "purchase_overclock", func(tx *sql.Tx) error {
		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		err = domain.RequireStatus("overclock", m.Status, domain.StatusActive)
		if err != nil {
			return err
		}

		if m.HasOverclock() {
			return fmt.Errorf("machine %s overclock x%s pending: %w", m.ID, m.OverclockMultiplier, domain.ErrInvalidState)
		}

		cost := m.PurchasePrice.Mul(lvl.CostPercent).Div(hundred)

		b, err := s.debit(tx, userID, cost)
		if err != nil {
			return fmt.Errorf("debit owner: %w", err)
		}

		m.OverclockMultiplier = lvl.Multiplier

		err = s.machines.Update(tx, m)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		e := newEntry(operationID, userID, m.ID, domain.EntryOverclockPurchase, cost, b, now)
		e.Metadata["multiplier"] = lvl.Multiplier.String()

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		res = UpgradeResult{Machine: m, Cost: cost}
		entry = e

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("purchase overclock: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventOverclocked,
		UserID:    userID,
		MachineID: machineID,
		Data:      map[string]any{"multiplier": multiplier.String()},
		At:        now,
	}, entry, false)

	return &res, nil
}

// CoinBoxInfo shows a machine's box and what the next level would cost.
// Next is nil at the top of the schedule.
type CoinBoxInfo struct {
	Level        int
	Capacity     decimal.Decimal
	Next         *settings.CoinBoxLevel
	NextCapacity decimal.Decimal
	Cost         decimal.Decimal
}

func (s *Service) CoinBoxInfo(ctx context.Context, userID uint64, machineID uuid.UUID) (*CoinBoxInfo, error) {
	m, err := s.getOwned(ctx, userID, machineID)
	if err != nil {
		return nil, fmt.Errorf("get machine: %w", err)
	}

	info := &CoinBoxInfo{Level: m.CoinBoxLevel, Capacity: m.CoinBoxCapacity}

	next, ok := s.econ.Economy(ctx).CoinBoxLevel(m.CoinBoxLevel + 1)
	if ok {
		info.Next = &next
		info.NextCapacity = nextCapacity(m, next)
		info.Cost = m.PurchasePrice.Mul(next.CostPercent).Div(hundred)
	}

	return info, nil
}

func nextCapacity(m *domain.Machine, next settings.CoinBoxLevel) decimal.Decimal {
	return decimal.Max(m.CoinBoxCapacity, m.CapacityFor(next.CapacityHours))
}

// UpgradeCoinBox raises the machine's box to the next capacity level. The box
// is checkpointed first, so income lost while it was full stays lost.
func (s *Service) UpgradeCoinBox(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*UpgradeResult, error) {
	now := s.now()
	econ := s.econ.Economy(ctx)
	operationID = opID(operationID)

	var (
		res   UpgradeResult
		entry *domain.LedgerEntry
	)

	err := s.run(ctx, "upgrade_coin_box", func(tx *sql.Tx) error {
		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		err = domain.RequireStatus("upgrade coin box", m.Status, domain.StatusActive)
		if err != nil {
			return err
		}

		next, ok := econ.CoinBoxLevel(m.CoinBoxLevel + 1)
		if !ok {
			return fmt.Errorf("coin box level %d: %w", m.CoinBoxLevel, domain.ErrMaxLevelReached)
		}

		cost := m.PurchasePrice.Mul(next.CostPercent).Div(hundred)

		b, err := s.debit(tx, userID, cost)
		if err != nil {
			return fmt.Errorf("debit owner: %w", err)
		}

		accrual.Checkpoint(m, accrual.Compute(m, now), now)

		m.CoinBoxCapacity = nextCapacity(m, next)
		m.CoinBoxLevel = next.Level

		err = s.machines.Update(tx, m)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		e := newEntry(operationID, userID, m.ID, domain.EntryCoinBoxUpgrade, cost, b, now)
		e.Metadata["level"] = next.Level
		e.Metadata["capacity_hours"] = next.CapacityHours

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		res = UpgradeResult{Machine: m, Cost: cost}
		entry = e

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upgrade coin box: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventCoinBoxUpgrade,
		UserID:    userID,
		MachineID: machineID,
		Data: map[string]any{
			"level":    res.Machine.CoinBoxLevel,
			"capacity": res.Machine.CoinBoxCapacity.String(),
		},
		At: now,
	}, entry, false)

	return &res, nil
}
