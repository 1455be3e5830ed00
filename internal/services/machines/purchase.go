package machines

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
	"github.com/fastprodman/fortunefloor/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxSourceMachines bounds the ancestor list stored on a new fund source.
const maxSourceMachines = 32

type PurchaseResult struct {
	Machine   *domain.Machine
	Breakdown fundsource.Breakdown
	// Listing is the auction listing settled by this purchase, if any.
	Listing *domain.AuctionListing
}

type PurchaseQuote struct {
	Tier         domain.TierDefinition
	Balance      decimal.Decimal
	CanAfford    bool
	Locked       bool
	Breakdown    fundsource.Breakdown
	QueuedOnSale int
}

// Quote tells whether userID could buy tier right now.
func (s *Service) Quote(ctx context.Context, userID uint64, tier int) (*PurchaseQuote, error) {
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

	queued, err := s.listings.CountPending(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}

	return &PurchaseQuote{
		Tier:         t,
		Balance:      u.FortuneBalance,
		CanAfford:    u.FortuneBalance.GreaterThanOrEqual(t.Price),
		Locked:       tierLocked(s.econ.Economy(ctx), t, u),
		Breakdown:    fundsource.CalculateBreakdown(u.FortuneBalance, u.TotalFreshDeposits, t.Price),
		QueuedOnSale: queued,
	}, nil
}

func tierLocked(econ *settings.Economy, t domain.TierDefinition, u *domain.User) bool {
	ceiling := econ.MaxGlobalTier
	if u.MaxTierUnlocked > ceiling {
		ceiling = u.MaxTierUnlocked
	}

	if t.Tier > ceiling {
		return true
	}

	return !t.PubliclyAvailable && t.Tier > u.MaxTierUnlocked
}

// Purchase buys a new machine of tier for userID. When a listing of that tier
// is pending, the oldest one is settled in the same transaction and its
// seller is paid.
func (s *Service) Purchase(ctx context.Context, userID uint64, tier int, operationID string) (*PurchaseResult, error) {
	now := s.now()
	econ := s.econ.Economy(ctx)
	operationID = opID(operationID)

	t, err := s.catalog.Get(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("purchase: get tier: %w", err)
	}

	var (
		res       PurchaseResult
		entry     *domain.LedgerEntry
		saleEntry *domain.LedgerEntry
	)

	err = s.run(ctx, "purchase", func(tx *sql.Tx) error {
		err := s.users.Ensure(tx, userID)
		if err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}

		l, sold, err := s.lockQueueHead(tx, tier, now)
		if err != nil {
			return err
		}

		buyer, err := s.lockUsers(tx, userID, l)
		if err != nil {
			return err
		}

		if tierLocked(econ, t, buyer) {
			return fmt.Errorf("tier %d: %w", tier, domain.ErrTierLocked)
		}

		running, err := s.machines.HasRunningOfTier(tx, userID, tier)
		if err != nil {
			return fmt.Errorf("check running machines: %w", err)
		}
		if running {
			return fmt.Errorf("user already runs a tier %d machine: %w", tier, domain.ErrInvalidState)
		}

		if buyer.FortuneBalance.LessThan(t.Price) {
			return fmt.Errorf("price %s: %w", t.Price, users.ErrInsufficientFunds)
		}

		b := fundsource.CalculateBreakdown(buyer.FortuneBalance, buyer.TotalFreshDeposits, t.Price)

		sources := []uuid.UUID{}
		if b.Profit.IsPositive() {
			sources, err = s.machines.ListProfitSources(tx, userID, maxSourceMachines)
			if err != nil {
				return fmt.Errorf("list profit sources: %w", err)
			}
		}

		round := 1
		if tier <= buyer.MaxTierReached {
			completed, err := s.machines.CountCompletedOfTier(tx, userID, tier)
			if err != nil {
				return fmt.Errorf("count completed machines: %w", err)
			}
			round = completed + 1
		}

		err = s.users.DecreaseBalance(tx, userID, t.Price)
		if err != nil {
			return fmt.Errorf("debit buyer: %w", err)
		}

		m := domain.NewMachine(userID, t, round, econ.ReinvestReductionFor(round), now)
		if l != nil {
			applyListingUpgrades(econ, m, l, now)
		}

		err = s.machines.Insert(tx, m)
		if err != nil {
			return fmt.Errorf("insert machine: %w", err)
		}

		err = s.funds.Create(tx, m.ID, b, sources)
		if err != nil {
			return err
		}

		err = s.users.RaiseMaxTier(tx, userID, tier)
		if err != nil {
			return fmt.Errorf("raise max tier: %w", err)
		}

		e := newEntry(operationID, userID, m.ID, domain.EntryMachinePurchase, t.Price, b, now)
		e.Metadata["tier"] = tier
		e.Metadata["reinvest_round"] = round
		e.Metadata["profit_reduction"] = m.ProfitReductionRate.String()

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		if l != nil {
			saleEntry, err = s.settleLocked(tx, l, sold, m, now, operationID)
			if err != nil {
				return fmt.Errorf("settle listing %s: %w", l.ID, err)
			}
		}

		res = PurchaseResult{Machine: m, Breakdown: b, Listing: l}
		entry = e

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("purchase: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventPurchased,
		UserID:    userID,
		MachineID: res.Machine.ID,
		Data:      map[string]any{"tier": tier, "price": t.Price.String()},
		At:        now,
	}, entry, false)

	if saleEntry != nil {
		s.afterCommit(ctx, notify.Event{
			Type:      notify.EventAuctionSold,
			UserID:    res.Listing.SellerID,
			MachineID: res.Listing.MachineID,
			Data:      map[string]any{"payout": res.Listing.ExpectedPayout.String()},
			At:        now,
		}, saleEntry, true)
	}

	return &res, nil
}

// applyListingUpgrades hands the upgrades the seller paid for to the machine
// that settles their listing. The box is sized for the new machine's rate.
func applyListingUpgrades(econ *settings.Economy, m *domain.Machine, l *domain.AuctionListing, now time.Time) {
	m.GambleLevel = l.GambleLevelAtListing

	m.AutoCollectEnabled = l.AutoCollectAtListing
	if m.AutoCollectEnabled {
		hiredAt := now
		m.AutoCollectHiredAt = &hiredAt
	}

	lvl, ok := econ.CoinBoxLevel(l.CoinBoxLevelAtListing)
	if ok && lvl.Level > m.CoinBoxLevel {
		m.CoinBoxLevel = lvl.Level
		m.CoinBoxCapacity = decimal.Max(m.CoinBoxCapacity, m.CapacityFor(lvl.CapacityHours))
	}
}

// lockQueueHead locks the oldest pending listing of tier and its machine.
// Listings whose machine already reached its lifespan are expired on the way.
func (s *Service) lockQueueHead(tx *sql.Tx, tier int, now time.Time) (*domain.AuctionListing, *domain.Machine, error) {
	for {
		l, err := s.listings.LockFirstPending(tx, tier)
		if err != nil {
			if errors.Is(err, listings.ErrListingNotFound) {
				return nil, nil, nil
			}

			return nil, nil, fmt.Errorf("lock queue head: %w", err)
		}

		m, err := s.machines.LockByID(tx, l.MachineID)
		if err != nil {
			return nil, nil, fmt.Errorf("lock listed machine: %w", err)
		}

		if now.Before(m.ExpiresAt) {
			return l, m, nil
		}

		err = s.expireListingLocked(tx, l, m, now)
		if err != nil {
			return nil, nil, err
		}
	}
}

// lockUsers locks the buyer and, when settling, the seller in ascending id order.
func (s *Service) lockUsers(tx *sql.Tx, buyerID uint64, l *domain.AuctionListing) (*domain.User, error) {
	ids := []uint64{buyerID}
	if l != nil && l.SellerID != buyerID {
		ids = append(ids, l.SellerID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var buyer *domain.User
	for _, id := range ids {
		u, err := s.users.LockAndGet(tx, id)
		if err != nil {
			return nil, fmt.Errorf("lock user %d: %w", id, err)
		}

		if id == buyerID {
			buyer = u
		}
	}

	return buyer, nil
}
