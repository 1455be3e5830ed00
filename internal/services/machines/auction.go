package machines

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/fastprodman/fortunefloor/internal/pricing"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	"github.com/google/uuid"
)

type ListingResult struct {
	Listing  *domain.AuctionListing
	Position int
	Queue    int
}

// QueueInfo describes the pending auction supply of one tier.
type QueueInfo struct {
	Tier   int
	Length int
	Head   *domain.AuctionListing
}

// AuctionQuote prices listing the machine now without listing it.
func (s *Service) AuctionQuote(ctx context.Context, userID uint64, machineID uuid.UUID) (*pricing.AuctionQuote, error) {
	m, err := s.getOwned(ctx, userID, machineID)
	if err != nil {
		return nil, fmt.Errorf("get machine: %w", err)
	}

	t, err := s.catalog.Get(ctx, m.Tier)
	if err != nil {
		return nil, fmt.Errorf("get tier: %w", err)
	}

	q := pricing.Auction(t.Price, m.StartedAt, m.ExpiresAt, s.now(), s.econ.Economy(ctx).AuctionBands)

	return &q, nil
}

// ListOnAuction queues an active machine for sale to the next buyer of its tier.
// The payout is priced and frozen now.
func (s *Service) ListOnAuction(ctx context.Context, userID uint64, machineID uuid.UUID) (*ListingResult, error) {
	now := s.now()
	econ := s.econ.Economy(ctx)

	var listing *domain.AuctionListing

	err := s.run(ctx, "list_on_auction", func(tx *sql.Tx) error {
		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		err = domain.RequireStatus("list on auction", m.Status, domain.StatusActive)
		if err != nil {
			return err
		}

		if !now.Before(m.ExpiresAt) {
			return fmt.Errorf("list machine %s: lifespan over: %w", m.ID, domain.ErrInvalidState)
		}

		t, err := s.catalog.Get(ctx, m.Tier)
		if err != nil {
			return fmt.Errorf("get tier: %w", err)
		}

		q := pricing.Auction(t.Price, m.StartedAt, m.ExpiresAt, now, econ.AuctionBands)

		accrual.Checkpoint(m, accrual.Compute(m, now), now)

		err = m.TransitionTo(domain.StatusListedAuction)
		if err != nil {
			return err
		}

		err = s.machines.Update(tx, m)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		l := &domain.AuctionListing{
			ID:                      uuid.New(),
			MachineID:               m.ID,
			SellerID:                userID,
			Tier:                    m.Tier,
			WearPercentAtListing:    q.WearPercent,
			CommissionRateAtListing: q.CommissionRate,
			ExpectedPayout:          q.ExpectedPayout,
			GambleLevelAtListing:    m.GambleLevel,
			AutoCollectAtListing:    m.AutoCollectEnabled,
			CoinBoxLevelAtListing:   m.CoinBoxLevel,
			Status:                  domain.ListingPending,
			CreatedAt:               now,
		}

		err = s.listings.Insert(tx, l)
		if err != nil {
			return fmt.Errorf("insert listing: %w", err)
		}

		listing = l

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list on auction: %w", err)
	}

	res := &ListingResult{Listing: listing}

	// queue numbers are informational; the listing is already committed
	res.Position, err = s.listings.Position(ctx, listing.ID)
	if err != nil {
		slog.WarnContext(ctx, "queue position", "listing_id", listing.ID, "error", err)
	}

	res.Queue, err = s.listings.CountPending(ctx, listing.Tier)
	if err != nil {
		slog.WarnContext(ctx, "queue length", "tier", listing.Tier, "error", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventListed,
		UserID:    userID,
		MachineID: machineID,
		Data: map[string]any{
			"expected_payout": listing.ExpectedPayout.String(),
			"position":        res.Position,
		},
		At: now,
	}, nil, false)

	return res, nil
}

// CancelAuctionListing withdraws a pending listing and reactivates the machine.
func (s *Service) CancelAuctionListing(ctx context.Context, userID uint64, machineID uuid.UUID) error {
	now := s.now()

	err := s.run(ctx, "cancel_listing", func(tx *sql.Tx) error {
		l, err := s.listings.LockPendingByMachine(tx, machineID)
		if err != nil {
			return fmt.Errorf("lock listing: %w", err)
		}

		if l.SellerID != userID {
			return domain.ErrOwnership
		}

		m, err := s.lockOwned(tx, userID, machineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		l.Status = domain.ListingCancelled

		err = s.listings.Update(tx, l)
		if err != nil {
			return fmt.Errorf("update listing: %w", err)
		}

		err = m.TransitionTo(domain.StatusActive)
		if err != nil {
			return err
		}

		err = s.machines.Update(tx, m)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel auction listing: %w", err)
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventListingCancel,
		UserID:    userID,
		MachineID: machineID,
		At:        now,
	}, nil, false)

	return nil
}

// Queue returns the length and head of a tier's pending queue.
func (s *Service) Queue(ctx context.Context, tier int) (*QueueInfo, error) {
	n, err := s.listings.CountPending(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}

	info := &QueueInfo{Tier: tier, Length: n}
	if n == 0 {
		return info, nil
	}

	info.Head, err = s.listings.FirstPending(ctx, tier)
	if err != nil && !errors.Is(err, listings.ErrListingNotFound) {
		return nil, fmt.Errorf("first pending: %w", err)
	}

	return info, nil
}

func (s *Service) QueueSummary(ctx context.Context) ([]listings.QueueStat, error) {
	stats, err := s.listings.QueueSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue summary: %w", err)
	}

	return stats, nil
}

func (s *Service) SellerListings(ctx context.Context, userID uint64, limit int) ([]*domain.AuctionListing, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	ls, err := s.listings.ListBySeller(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list seller listings: %w", err)
	}

	return ls, nil
}

// settleLocked completes a pending listing for a buyer whose machine was just
// created. The seller receives the frozen payout; what was left in the sold
// machine's box stays with it.
func (s *Service) settleLocked(
	tx *sql.Tx,
	l *domain.AuctionListing,
	sold *domain.Machine,
	bought *domain.Machine,
	now time.Time,
	operationID string,
) (*domain.LedgerEntry, error) {
	accrual.Checkpoint(sold, accrual.Compute(sold, now), now)

	err := sold.TransitionTo(domain.StatusSoldAuction)
	if err != nil {
		return nil, err
	}

	err = s.machines.Update(tx, sold)
	if err != nil {
		return nil, fmt.Errorf("update sold machine: %w", err)
	}

	buyer := bought.OwnerID
	newID := bought.ID
	soldAt := now

	l.Status = domain.ListingSold
	l.BuyerID = &buyer
	l.NewMachineID = &newID
	l.SoldAt = &soldAt

	err = s.listings.Update(tx, l)
	if err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}

	b, err := s.funds.Credit(tx, l.SellerID, sold.ID, l.ExpectedPayout, l.ExpectedPayout)
	if err != nil {
		return nil, fmt.Errorf("credit seller: %w", err)
	}

	e := newEntry(operationID+":auction_payout", l.SellerID, sold.ID, domain.EntryAuctionSale, bought.PurchasePrice, b, now)
	e.TaxRate = l.CommissionRateAtListing
	e.TaxAmount = bought.PurchasePrice.Sub(l.ExpectedPayout)
	e.NetAmount = l.ExpectedPayout
	e.Metadata["listing_id"] = l.ID.String()
	e.Metadata["wear_percent"] = l.WearPercentAtListing.StringFixed(2)
	e.Metadata["buyer_id"] = buyer

	err = s.ledger.Insert(tx, e)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	return e, nil
}
