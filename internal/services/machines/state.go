package machines

import (
	"context"
	"fmt"
	"sort"

	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/google/uuid"
)

// View is a machine together with its earnings recomputed at read time.
type View struct {
	Machine *domain.Machine
	State   accrual.State
}

// ComputeState returns the live state of one of userID's machines. Nothing is written.
func (s *Service) ComputeState(ctx context.Context, userID uint64, machineID uuid.UUID) (*View, error) {
	m, err := s.getOwned(ctx, userID, machineID)
	if err != nil {
		return nil, fmt.Errorf("get machine: %w", err)
	}

	return &View{Machine: m, State: accrual.Compute(m, s.now())}, nil
}

// ListMachines returns userID's machines, optionally filtered by status.
func (s *Service) ListMachines(ctx context.Context, userID uint64, statuses ...domain.Status) ([]View, error) {
	ms, err := s.machines.ListByOwner(ctx, userID, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}

	now := s.now()
	out := make([]View, 0, len(ms))
	for _, m := range ms {
		out = append(out, View{Machine: m, State: accrual.Compute(m, now)})
	}

	return out, nil
}

// Tiers returns the visible tiers in display order.
func (s *Service) Tiers(ctx context.Context) []domain.TierDefinition {
	all := s.catalog.List(ctx)

	out := make([]domain.TierDefinition, 0, len(all))
	for _, t := range all {
		if t.Visible {
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })

	return out
}

// History returns the newest ledger entries of userID.
func (s *Service) History(ctx context.Context, userID uint64, limit int, types ...domain.EntryType) ([]*domain.LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	entries, err := s.ledger.ListByUser(ctx, userID, limit, types...)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}

	return entries, nil
}
