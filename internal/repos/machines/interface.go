package machines

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/google/uuid"
)

var ErrMachineNotFound = fmt.Errorf("machine %w", domain.ErrNotFound)

type Machines interface {
	Insert(tx *sql.Tx, m *domain.Machine) error
	// LockByID reads the machine row FOR UPDATE.
	LockByID(tx *sql.Tx, id uuid.UUID) (*domain.Machine, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Machine, error)
	// Update writes every mutable column of m and bumps updated_at.
	Update(tx *sql.Tx, m *domain.Machine) error
	ListByOwner(ctx context.Context, ownerID uint64, statuses ...domain.Status) ([]*domain.Machine, error)

	// ListExpiring returns active machines whose lifespan ended at or before now,
	// paged by id after the given one.
	ListExpiring(ctx context.Context, now time.Time, limit int, after uuid.UUID) ([]uuid.UUID, error)
	// ListAutoCollect returns active machines with a hired collector.
	ListAutoCollect(ctx context.Context, limit int, after uuid.UUID) ([]uuid.UUID, error)

	HasRunningOfTier(tx *sql.Tx, ownerID uint64, tier int) (bool, error)
	CountCompletedOfTier(tx *sql.Tx, ownerID uint64, tier int) (int, error)
	// ListProfitSources returns ids of the owner's machines that have paid out profit.
	ListProfitSources(tx *sql.Tx, ownerID uint64, limit int) ([]uuid.UUID, error)
}
