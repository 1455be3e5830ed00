package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func rustyLever() TierDefinition {
	return TierDefinition{
		Tier:                 1,
		Name:                 "RUSTY LEVER",
		Price:                decimal.NewFromInt(10),
		LifespanDays:         3,
		YieldPercent:         decimal.NewFromInt(145),
		CoinBoxCapacityHours: 12,
	}
}

func TestNewMachine(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		round      int
		reduction  string
		wantProfit string
		wantYield  string
	}{
		{name: "first_round_full_profit", round: 1, reduction: "0", wantProfit: "4.5", wantYield: "14.5"},
		{name: "second_round_reduced", round: 2, reduction: "0.35", wantProfit: "2.925", wantYield: "12.925"},
		{name: "full_reduction", round: 9, reduction: "1", wantProfit: "0", wantYield: "10"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMachine(7, rustyLever(), tt.round, decimal.RequireFromString(tt.reduction), now)

			if !m.ProfitAmount.Equal(decimal.RequireFromString(tt.wantProfit)) {
				t.Fatalf("profit: want %s, got %s", tt.wantProfit, m.ProfitAmount)
			}
			if !m.TotalYield.Equal(decimal.RequireFromString(tt.wantYield)) {
				t.Fatalf("total yield: want %s, got %s", tt.wantYield, m.TotalYield)
			}
			if !m.ExpiresAt.Equal(now.Add(72 * time.Hour)) {
				t.Fatalf("expires at: got %s", m.ExpiresAt)
			}
			if m.CoinBoxLevel != 1 || !m.CoinBoxCapacity.Equal(m.RatePerSecond.Mul(decimal.NewFromInt(12 * 3600))) {
				t.Fatalf("capacity is not 12h of income at level 1: %s level %d", m.CoinBoxCapacity, m.CoinBoxLevel)
			}
			if m.Status != StatusActive || m.OwnerID != 7 || m.ReinvestRound != tt.round {
				t.Fatalf("unexpected machine header: %+v", m)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusActive, StatusExpired, true},
		{StatusActive, StatusSoldEarly, true},
		{StatusActive, StatusListedAuction, true},
		{StatusListedAuction, StatusActive, true},
		{StatusListedAuction, StatusSoldAuction, true},
		{StatusListedAuction, StatusExpired, true},
		{StatusListedAuction, StatusSoldEarly, false},
		{StatusExpired, StatusActive, false},
		{StatusSoldEarly, StatusActive, false},
		{StatusSoldPawnshop, StatusExpired, false},
		{StatusActive, StatusActive, false},
	}

	for _, tt := range tests {
		m := &Machine{Status: tt.from}

		err := m.TransitionTo(tt.to)
		if tt.ok && err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok {
			if !errors.Is(err, ErrInvalidState) {
				t.Fatalf("%s -> %s: want ErrInvalidState, got %v", tt.from, tt.to, err)
			}
			if m.Status != tt.from {
				t.Fatalf("status changed on rejected transition: %s", m.Status)
			}
		}
	}
}

func TestRequireStatus(t *testing.T) {
	t.Parallel()

	err := RequireStatus("sell early", StatusExpired, StatusActive)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}

	want := "sell early: machine is expired, requires active"
	if err.Error() != want {
		t.Fatalf("message: want %q, got %q", want, err.Error())
	}

	var se *StateError
	if !errors.As(err, &se) || se.Actual != StatusExpired {
		t.Fatalf("want *StateError naming actual status, got %#v", err)
	}

	if err := RequireStatus("collect", StatusListedAuction, StatusActive, StatusListedAuction); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
