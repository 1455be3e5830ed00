// Package tiers serves tier definitions from the database through a
// read-through cache with a built-in fallback.
package tiers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/tiers"
)

var ErrTierNotFound = fmt.Errorf("tier %w", domain.ErrNotFound)

type Catalog struct {
	store tiers.Tiers
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	byTier   map[int]domain.TierDefinition
	loadedAt time.Time
}

// NewCatalog returns a catalog that reloads from store once entries are older than ttl.
// A nil store serves the defaults only.
func NewCatalog(store tiers.Tiers, ttl time.Duration) *Catalog {
	return &Catalog{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		byTier: index(Defaults()),
	}
}

func (c *Catalog) Get(ctx context.Context, tier int) (domain.TierDefinition, error) {
	c.ensure(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byTier[tier]
	if !ok {
		return domain.TierDefinition{}, fmt.Errorf("tier %d: %w", tier, ErrTierNotFound)
	}

	return t, nil
}

// List returns all tiers ordered by sort order.
func (c *Catalog) List(ctx context.Context) []domain.TierDefinition {
	c.ensure(ctx)

	c.mu.RLock()
	out := make([]domain.TierDefinition, 0, len(c.byTier))
	for _, t := range c.byTier {
		out = append(out, t)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}

		return out[i].Tier < out[j].Tier
	})

	return out
}

// Refresh reloads the catalog. On failure the previous entries stay in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.store == nil {
		c.mu.Lock()
		c.loadedAt = c.now()
		c.mu.Unlock()

		return nil
	}

	rows, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list tiers: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(rows) == 0 {
		c.byTier = index(Defaults())
	} else {
		c.byTier = index(rows)
	}

	c.loadedAt = c.now()

	return nil
}

// Invalidate forces the next read to reload. Call it after tiers are edited.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Catalog) ensure(ctx context.Context) {
	c.mu.RLock()
	fresh := !c.loadedAt.IsZero() && c.now().Sub(c.loadedAt) < c.ttl
	c.mu.RUnlock()

	if fresh {
		return
	}

	err := c.Refresh(ctx)
	if err != nil {
		slog.Warn("tier catalog refresh failed, serving cached tiers", "error", err)

		// back off until the next ttl instead of hitting the store on every read
		c.mu.Lock()
		c.loadedAt = c.now()
		c.mu.Unlock()
	}
}

func index(rows []domain.TierDefinition) map[int]domain.TierDefinition {
	m := make(map[int]domain.TierDefinition, len(rows))
	for _, r := range rows {
		m[r.Tier] = r
	}

	return m
}
