// Package notify fans out post-commit events to interested listeners.
// Delivery is best effort: a failed notification never rolls back the
// operation that produced it.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCollected      EventType = "collected"
	EventSoldEarly      EventType = "sold_early"
	EventListed         EventType = "listed_on_auction"
	EventListingCancel  EventType = "listing_cancelled"
	EventAuctionSold    EventType = "auction_sold"
	EventPawned         EventType = "pawned"
	EventGambled        EventType = "gambled"
	EventPurchased      EventType = "purchased"
	EventExpired        EventType = "expired"
	EventAutoCollected  EventType = "auto_collected"
	EventCollectorHired EventType = "collector_hired"
	EventOverclocked    EventType = "overclocked"
	EventBalanceChanged EventType = "balance_changed"
	EventCoinBoxUpgrade EventType = "coin_box_upgraded"
	EventTierUnlocked   EventType = "tier_unlocked"
)

type Event struct {
	Type      EventType      `json:"type"`
	UserID    uint64         `json:"userId"`
	MachineID uuid.UUID      `json:"machineId"`
	Data      map[string]any `json:"data,omitempty"`
	At        time.Time      `json:"at"`
}

type Sink interface {
	Notify(ctx context.Context, ev Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// Multi delivers each event to every sink in order.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Notify(ctx, ev)
	}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Notify(ctx context.Context, ev Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "event",
		"type", ev.Type,
		"user_id", ev.UserID,
		"machine_id", ev.MachineID,
		"data", ev.Data,
	)
}
