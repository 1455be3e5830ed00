package machines

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/gamble"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type GambleResult struct {
	gamble.Outcome
	Box       decimal.Decimal
	Overclock decimal.Decimal
	Breakdown fundsource.Breakdown
}

type GambleInfo struct {
	Level         gamble.Level
	ExpectedValue decimal.Decimal
	// Next is nil at the top level.
	Next              *gamble.Level
	NextExpectedValue decimal.Decimal
	UpgradeCost       decimal.Decimal
	WinMultiplier     decimal.Decimal
	LoseMultiplier    decimal.Decimal
}

// GambleInfo describes the machine's current odds and the next upgrade.
func (s *Service) GambleInfo(ctx context.Context, userID uint64, machineID uuid.UUID) (*GambleInfo, error) {
	m, err := s.getOwned(ctx, userID, machineID)
	if err != nil {
		return nil, fmt.Errorf("get machine: %w", err)
	}

	g := s.econ.Economy(ctx).Gamble
	cur := gamble.LevelFor(g.Levels, m.GambleLevel)

	info := &GambleInfo{
		Level:          cur,
		ExpectedValue:  gamble.ExpectedValue(cur.WinChance, g.WinMultiplier, g.LoseMultiplier),
		WinMultiplier:  g.WinMultiplier,
		LoseMultiplier: g.LoseMultiplier,
	}

	next, err := gamble.NextLevel(g.Levels, m.GambleLevel)
	if err == nil {
		info.Next = &next
		info.NextExpectedValue = gamble.ExpectedValue(next.WinChance, g.WinMultiplier, g.LoseMultiplier)
		info.UpgradeCost = gamble.UpgradeCost(m.PurchasePrice, next)
	}

	return info, nil
}

// RiskyCollect collects the box through a double-or-nothing roll. The roll
// happens once inside the transaction; a retry with the same operation id is
// rejected by the ledger before anything is committed.
func (s *Service) RiskyCollect(ctx context.Context, userID uint64, machineID uuid.UUID, operationID string) (*GambleResult, error) {
	now := s.now()
	g := s.econ.Economy(ctx).Gamble
	operationID = opID(operationID)

	var (
		res   GambleResult
		entry *domain.LedgerEntry
	)

	err := s.run(ctx, "risky_collect", func(tx *sql.Tx) error {
		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		err = domain.RequireStatus("risky collect", m.Status,
			domain.StatusActive, domain.StatusListedAuction, domain.StatusExpired)
		if err != nil {
			return err
		}

		st := accrual.Compute(m, now)
		if !st.CanCollect || !st.CoinBoxCurrent.IsPositive() {
			return fmt.Errorf("machine %s has nothing to collect: %w", m.ID, domain.ErrInvalidState)
		}

		base := st.CoinBoxCurrent
		overclock := decimal.Zero
		if m.HasOverclock() {
			overclock = m.OverclockMultiplier
			base = base.Mul(overclock)
			m.OverclockMultiplier = decimal.Zero
		}

		lvl := gamble.LevelFor(g.Levels, m.GambleLevel)

		won, err := s.roller.Roll(lvl.WinChance)
		if err != nil {
			return fmt.Errorf("roll: %w", err)
		}

		out := gamble.Resolve(base, lvl.WinChance, g.WinMultiplier, g.LoseMultiplier, won)

		accrual.Drain(m, st, now)

		if m.Status == domain.StatusActive && st.IsExpired {
			err = s.expireLocked(tx, m, now)
			if err != nil {
				return fmt.Errorf("expire machine: %w", err)
			}
		}

		err = s.machines.Update(tx, m)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		b, err := s.funds.Credit(tx, userID, m.ID, out.FinalAmount, st.CurrentPrincipalPortion)
		if err != nil {
			return fmt.Errorf("credit owner: %w", err)
		}

		e := newEntry(operationID, userID, m.ID, domain.EntryRiskyCollect, base, b, now)
		e.NetAmount = out.FinalAmount
		e.Metadata["won"] = won
		e.Metadata["win_chance"] = lvl.WinChance.String()
		e.Metadata["multiplier"] = out.Multiplier.String()
		e.Metadata["gamble_level"] = lvl.Level
		e.Metadata["box"] = st.CoinBoxCurrent.String()
		if overclock.IsPositive() {
			e.Metadata["overclock"] = overclock.String()
		}

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		res = GambleResult{Outcome: out, Box: st.CoinBoxCurrent, Overclock: overclock, Breakdown: b}
		entry = e

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("risky collect: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventGambled,
		UserID:    userID,
		MachineID: machineID,
		Data:      map[string]any{"won": res.Won, "final": res.FinalAmount.String()},
		At:        now,
	}, entry, true)

	return &res, nil
}
