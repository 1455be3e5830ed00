package tiers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/tiers"
)

var _ tiers.Tiers = (*tiersRepo)(nil)

type tiersRepo struct{ db *sql.DB }

func New(db *sql.DB) *tiersRepo {
	return &tiersRepo{db: db}
}

func (r *tiersRepo) List(ctx context.Context) ([]domain.TierDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tier, name, price, lifespan_days, yield_percent, coin_box_capacity_hours,
		       visible, publicly_available, sort_order
		FROM tier_definitions
		ORDER BY sort_order, tier
	`)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]domain.TierDefinition, 0)

	for rows.Next() {
		var t domain.TierDefinition

		err = rows.Scan(
			&t.Tier, &t.Name, &t.Price, &t.LifespanDays, &t.YieldPercent, &t.CoinBoxCapacityHours,
			&t.Visible, &t.PubliclyAvailable, &t.SortOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}

		out = append(out, t)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate tiers: %w", err)
	}

	return out, nil
}
