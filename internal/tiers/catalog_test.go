package tiers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

type stubStore struct {
	rows  []domain.TierDefinition
	err   error
	calls atomic.Int32
}

func (s *stubStore) List(context.Context) ([]domain.TierDefinition, error) {
	s.calls.Add(1)
	return s.rows, s.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCatalog(store *stubStore, ttl time.Duration) (*Catalog, *clock) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCatalog(store, ttl)
	c.now = clk.now

	return c, clk
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	defs := Defaults()
	if len(defs) != 10 {
		t.Fatalf("want 10 tiers, got %d", len(defs))
	}

	first, last := defs[0], defs[9]
	if first.Name != "RUSTY LEVER" || !first.Price.Equal(decimal.NewFromInt(10)) || first.LifespanDays != 3 {
		t.Fatalf("tier 1: %+v", first)
	}
	if last.Tier != 10 || !last.YieldPercent.Equal(decimal.NewFromInt(170)) {
		t.Fatalf("tier 10: %+v", last)
	}
}

func TestCatalog_FallbackWhenStoreEmptyOrFailing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store *stubStore
	}{
		{name: "empty_store", store: &stubStore{}},
		{name: "failing_store", store: &stubStore{err: errors.New("db down")}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newTestCatalog(tt.store, time.Minute)

			got, err := c.Get(t.Context(), 3)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Name != "GOLDEN 7s" {
				t.Fatalf("want fallback tier, got %+v", got)
			}
		})
	}
}

func TestCatalog_ReadThroughAndInvalidate(t *testing.T) {
	t.Parallel()

	store := &stubStore{rows: []domain.TierDefinition{
		{Tier: 1, Name: "CUSTOM", Price: decimal.NewFromInt(12), LifespanDays: 2, SortOrder: 2},
		{Tier: 2, Name: "OTHER", Price: decimal.NewFromInt(40), LifespanDays: 3, SortOrder: 1},
	}}
	c, clk := newTestCatalog(store, 5*time.Minute)

	got, err := c.Get(t.Context(), 1)
	if err != nil || got.Name != "CUSTOM" {
		t.Fatalf("get tier 1: %+v %v", got, err)
	}

	_, err = c.Get(t.Context(), 3)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound for tier absent from store, got %v", err)
	}

	if n := store.calls.Load(); n != 1 {
		t.Fatalf("want one load within ttl, got %d", n)
	}

	list := c.List(t.Context())
	if len(list) != 2 || list[0].Tier != 2 {
		t.Fatalf("list not ordered by sort order: %+v", list)
	}

	c.Invalidate()
	_ = c.List(t.Context())
	if n := store.calls.Load(); n != 2 {
		t.Fatalf("invalidate should force a reload, loads=%d", n)
	}

	clk.t = clk.t.Add(6 * time.Minute)
	_ = c.List(t.Context())
	if n := store.calls.Load(); n != 3 {
		t.Fatalf("expired ttl should reload, loads=%d", n)
	}
}

func TestCatalog_KeepsPreviousOnRefreshError(t *testing.T) {
	t.Parallel()

	store := &stubStore{rows: []domain.TierDefinition{{Tier: 1, Name: "CUSTOM"}}}
	c, _ := newTestCatalog(store, time.Minute)

	if err := c.Refresh(t.Context()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	store.err = errors.New("boom")
	if err := c.Refresh(t.Context()); err == nil {
		t.Fatalf("expected refresh error")
	}

	got, err := c.Get(t.Context(), 1)
	if err != nil || got.Name != "CUSTOM" {
		t.Fatalf("previous entries lost: %+v %v", got, err)
	}
}
