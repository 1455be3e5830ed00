package machines

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
	"github.com/fastprodman/fortunefloor/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TierUnlockInfo prices unlocking a tier. CanUnlock is set only for the next
// tier in line.
type TierUnlockInfo struct {
	Tier            int
	Fee             decimal.Decimal
	AlreadyUnlocked bool
	CanUnlock       bool
	MaxTierUnlocked int
}

type TierUnlockResult struct {
	Tier      int
	Fee       decimal.Decimal
	Breakdown fundsource.Breakdown
}

// unlockedUpTo is the highest tier the user may buy without paying for it.
func unlockedUpTo(econ *settings.Economy, u *domain.User) int {
	if u.MaxTierUnlocked > econ.MaxGlobalTier {
		return u.MaxTierUnlocked
	}

	return econ.MaxGlobalTier
}

func unlockFee(econ *settings.Economy, t domain.TierDefinition) decimal.Decimal {
	return t.Price.Mul(econ.TierUnlockFeePercent).Div(hundred)
}

func (s *Service) TierUnlockInfo(ctx context.Context, userID uint64, tier int) (*TierUnlockInfo, error) {
	econ := s.econ.Economy(ctx)

	t, err := s.catalog.Get(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("get tier: %w", err)
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil && !errors.Is(err, users.ErrUserNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		u = &domain.User{ID: userID}
	}

	upTo := unlockedUpTo(econ, u)

	return &TierUnlockInfo{
		Tier:            tier,
		Fee:             unlockFee(econ, t),
		AlreadyUnlocked: tier <= upTo,
		CanUnlock:       tier == upTo+1,
		MaxTierUnlocked: upTo,
	}, nil
}

// PurchaseTierUnlock pays the fee to open tier before the user earns it by
// running the tier below to expiry. Tiers unlock one at a time.
func (s *Service) PurchaseTierUnlock(ctx context.Context, userID uint64, tier int, operationID string) (*TierUnlockResult, error) {
	now := s.now()
	econ := s.econ.Economy(ctx)
	operationID = opID(operationID)

	t, err := s.catalog.Get(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("purchase tier unlock: get tier: %w", err)
	}

	fee := unlockFee(econ, t)

	var (
		res   TierUnlockResult
		entry *domain.LedgerEntry
	)

	err = s.run(ctx, "purchase_tier_unlock", func(tx *sql.Tx) error {
		err := s.users.Ensure(tx, userID)
		if err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}

		u, err := s.users.LockAndGet(tx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		upTo := unlockedUpTo(econ, u)
		if tier <= upTo {
			return fmt.Errorf("tier %d already unlocked: %w", tier, domain.ErrInvalidState)
		}
		if tier != upTo+1 {
			return fmt.Errorf("tier %d: next unlock is %d: %w", tier, upTo+1, domain.ErrTierLocked)
		}

		b, err := s.debit(tx, userID, fee)
		if err != nil {
			return fmt.Errorf("debit user: %w", err)
		}

		err = s.users.RaiseMaxTierUnlocked(tx, userID, tier)
		if err != nil {
			return fmt.Errorf("raise max tier unlocked: %w", err)
		}

		e := newEntry(operationID, userID, uuid.Nil, domain.EntryTierUnlock, fee, b, now)
		e.MachineID = nil
		e.Metadata["tier"] = tier

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		res = TierUnlockResult{Tier: tier, Fee: fee, Breakdown: b}
		entry = e

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("purchase tier unlock: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:   notify.EventTierUnlocked,
		UserID: userID,
		Data:   map[string]any{"tier": tier, "fee": fee.String()},
		At:     now,
	}, entry, false)

	return &res, nil
}
