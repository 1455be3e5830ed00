package tiers

import (
	"context"

	"github.com/fastprodman/fortunefloor/internal/domain"
)

type Tiers interface {
	List(ctx context.Context) ([]domain.TierDefinition, error)
}
