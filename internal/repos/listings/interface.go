package listings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrListingNotFound = fmt.Errorf("auction listing %w", domain.ErrNotFound)
	ErrAlreadyListed   = fmt.Errorf("machine already listed: %w", domain.ErrInvalidState)
)

// QueueStat summarizes the pending queue of one tier.
type QueueStat struct {
	Tier     int
	Pending  int
	OldestAt time.Time
}

type Listings interface {
	Insert(tx *sql.Tx, l *domain.AuctionListing) error
	LockByID(tx *sql.Tx, id uuid.UUID) (*domain.AuctionListing, error)
	// LockFirstPending locks the oldest pending listing of tier.
	LockFirstPending(tx *sql.Tx, tier int) (*domain.AuctionListing, error)
	LockPendingByMachine(tx *sql.Tx, machineID uuid.UUID) (*domain.AuctionListing, error)
	Update(tx *sql.Tx, l *domain.AuctionListing) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.AuctionListing, error)
	FirstPending(ctx context.Context, tier int) (*domain.AuctionListing, error)
	CountPending(ctx context.Context, tier int) (int, error)
	// Position is the 1-based place of a pending listing in its tier queue.
	Position(ctx context.Context, id uuid.UUID) (int, error)
	ListBySeller(ctx context.Context, sellerID uint64, limit int) ([]*domain.AuctionListing, error)
	// ListExpiredPending returns pending listings whose machine lifespan ended,
	// paged by listing id after the given one.
	ListExpiredPending(ctx context.Context, now time.Time, limit int, after uuid.UUID) ([]uuid.UUID, error)
	QueueSummary(ctx context.Context) ([]QueueStat, error)
}
