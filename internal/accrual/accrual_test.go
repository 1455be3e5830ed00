package accrual

import (
	"testing"
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixture earns 0.001 per second, fills its box in 10000s and lives 150000s.
func fixture() *domain.Machine {
	return &domain.Machine{
		PurchasePrice:     d("100"),
		ProfitAmount:      d("50"),
		TotalYield:        d("150"),
		RatePerSecond:     d("0.001"),
		CoinBoxCapacity:   d("10"),
		CoinBoxCurrent:    decimal.Zero,
		AccumulatedIncome: decimal.Zero,
		ProfitPaidOut:     decimal.Zero,
		PrincipalPaidOut:  decimal.Zero,
		StartedAt:         t0,
		LastCalculatedAt:  t0,
		ExpiresAt:         t0.Add(150000 * time.Second),
		Status:            domain.StatusActive,
	}
}

func TestCompute_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		mutate        func(m *domain.Machine)
		at            time.Duration
		wantBox       string
		wantFull      bool
		wantExpired   bool
		wantCollect   bool
		wantUntilFull int64
		wantProfit    string
		wantPrincipal string
	}{
		{
			name:          "partial_box",
			at:            2500 * time.Second,
			wantBox:       "2.5",
			wantUntilFull: 7500,
			wantProfit:    "2.5",
			wantPrincipal: "0",
		},
		{
			name:          "sub_second_resolution",
			at:            1500 * time.Millisecond,
			wantBox:       "0.0015",
			wantUntilFull: 9999,
			wantProfit:    "0.0015",
			wantPrincipal: "0",
		},
		{
			name:          "exactly_full",
			at:            10000 * time.Second,
			wantBox:       "10",
			wantFull:      true,
			wantCollect:   true,
			wantProfit:    "10",
			wantPrincipal: "0",
		},
		{
			name:          "caps_at_capacity",
			at:            30000 * time.Second,
			wantBox:       "10",
			wantFull:      true,
			wantCollect:   true,
			wantProfit:    "10",
			wantPrincipal: "0",
		},
		{
			name: "profit_paid_first_then_principal",
			mutate: func(m *domain.Machine) {
				m.ProfitPaidOut = d("47")
			},
			at:            5000 * time.Second,
			wantBox:       "5",
			wantUntilFull: 5000,
			wantProfit:    "3",
			wantPrincipal: "2",
		},
		{
			name: "income_stops_at_expiry",
			mutate: func(m *domain.Machine) {
				m.LastCalculatedAt = m.ExpiresAt.Add(-1000 * time.Second)
				m.ProfitPaidOut = d("50")
				m.PrincipalPaidOut = d("80")
			},
			at:            200000 * time.Second,
			wantBox:       "1",
			wantExpired:   true,
			wantCollect:   true,
			wantProfit:    "0",
			wantPrincipal: "1",
		},
		{
			name: "clock_behind_checkpoint_adds_nothing",
			mutate: func(m *domain.Machine) {
				m.LastCalculatedAt = t0.Add(time.Hour)
				m.CoinBoxCurrent = d("1.25")
			},
			at:            0,
			wantBox:       "1.25",
			wantUntilFull: 8750,
			wantProfit:    "1.25",
			wantPrincipal: "0",
		},
		{
			name: "never_exceeds_total_yield",
			mutate: func(m *domain.Machine) {
				m.ProfitPaidOut = d("50")
				m.PrincipalPaidOut = d("99.5")
			},
			at:            20000 * time.Second,
			wantBox:       "0.5",
			wantFull:      true,
			wantCollect:   true,
			wantProfit:    "0",
			wantPrincipal: "0.5",
		},
		{
			name: "fill_time_clamped_to_expiry",
			mutate: func(m *domain.Machine) {
				m.ExpiresAt = t0.Add(5000 * time.Second)
			},
			at:            2000 * time.Second,
			wantBox:       "2",
			wantUntilFull: 3000,
			wantProfit:    "2",
			wantPrincipal: "0",
		},
		{
			name: "fill_time_stops_at_yield_cap",
			mutate: func(m *domain.Machine) {
				m.ProfitPaidOut = d("50")
				m.PrincipalPaidOut = d("96")
			},
			at:            1000 * time.Second,
			wantBox:       "1",
			wantUntilFull: 3000,
			wantProfit:    "0",
			wantPrincipal: "1",
		},
		{
			name: "yield_cap_reached_is_full",
			mutate: func(m *domain.Machine) {
				m.ProfitPaidOut = d("50")
				m.PrincipalPaidOut = d("96")
			},
			at:            5000 * time.Second,
			wantBox:       "4",
			wantFull:      true,
			wantCollect:   true,
			wantProfit:    "0",
			wantPrincipal: "4",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := fixture()
			if tt.mutate != nil {
				tt.mutate(m)
			}

			st := Compute(m, t0.Add(tt.at))

			if !st.CoinBoxCurrent.Equal(d(tt.wantBox)) {
				t.Fatalf("box: want %s, got %s", tt.wantBox, st.CoinBoxCurrent)
			}
			if st.IsFull != tt.wantFull {
				t.Fatalf("isFull: want %v, got %v", tt.wantFull, st.IsFull)
			}
			if st.IsExpired != tt.wantExpired {
				t.Fatalf("isExpired: want %v, got %v", tt.wantExpired, st.IsExpired)
			}
			if st.CanCollect != tt.wantCollect {
				t.Fatalf("canCollect: want %v, got %v", tt.wantCollect, st.CanCollect)
			}
			if st.SecondsUntilFull != tt.wantUntilFull {
				t.Fatalf("secondsUntilFull: want %d, got %d", tt.wantUntilFull, st.SecondsUntilFull)
			}
			if !st.CurrentProfitPortion.Equal(d(tt.wantProfit)) {
				t.Fatalf("profit portion: want %s, got %s", tt.wantProfit, st.CurrentProfitPortion)
			}
			if !st.CurrentPrincipalPortion.Equal(d(tt.wantPrincipal)) {
				t.Fatalf("principal portion: want %s, got %s", tt.wantPrincipal, st.CurrentPrincipalPortion)
			}
		})
	}
}

func TestCompute_RateConsistentAndIdempotent(t *testing.T) {
	t.Parallel()

	m := fixture()

	first := Compute(m, t0.Add(1234*time.Second))
	again := Compute(m, t0.Add(1234*time.Second))
	if !first.CoinBoxCurrent.Equal(again.CoinBoxCurrent) {
		t.Fatalf("not idempotent at dt=0: %s vs %s", first.CoinBoxCurrent, again.CoinBoxCurrent)
	}

	later := Compute(m, t0.Add(1334*time.Second))

	delta := later.CoinBoxCurrent.Sub(first.CoinBoxCurrent)
	if !delta.Equal(m.RatePerSecond.Mul(decimal.NewFromInt(100))) {
		t.Fatalf("box grew by %s, want rate*100", delta)
	}

	if !m.CoinBoxCurrent.IsZero() || !m.LastCalculatedAt.Equal(t0) {
		t.Fatalf("compute mutated the machine")
	}
}

func TestCompute_TerminalStatesFrozen(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.Status{
		domain.StatusExpired, domain.StatusSoldEarly, domain.StatusSoldAuction, domain.StatusSoldPawnshop,
	} {
		m := fixture()
		m.Status = status
		m.CoinBoxCurrent = d("3")

		st := Compute(m, t0.Add(100000*time.Second))
		if !st.CoinBoxCurrent.Equal(d("3")) {
			t.Fatalf("%s: box recomputed to %s", status, st.CoinBoxCurrent)
		}

		wantCollect := status == domain.StatusExpired
		if st.CanCollect != wantCollect {
			t.Fatalf("%s: canCollect want %v, got %v", status, wantCollect, st.CanCollect)
		}
	}
}

// Collecting every box over the whole lifespan must respect the capacity and
// never pay more than price plus profit.
func TestCompute_LifetimeInvariants(t *testing.T) {
	t.Parallel()

	m := fixture()
	limit := m.PurchasePrice.Add(m.ProfitAmount)

	for now := t0; !now.After(m.ExpiresAt.Add(time.Hour)); now = now.Add(7919 * time.Second) {
		st := Compute(m, now)

		if st.CoinBoxCurrent.GreaterThan(m.CoinBoxCapacity) || st.CoinBoxCurrent.IsNegative() {
			t.Fatalf("box out of range at %s: %s", now, st.CoinBoxCurrent)
		}

		if st.CanCollect {
			Drain(m, st, now)
		}

		if m.ProfitPaidOut.Add(m.PrincipalPaidOut).GreaterThan(limit) {
			t.Fatalf("paid out %s over limit %s", m.ProfitPaidOut.Add(m.PrincipalPaidOut), limit)
		}
		if m.ProfitPaidOut.GreaterThan(m.ProfitAmount) {
			t.Fatalf("profit paid out %s over profit amount", m.ProfitPaidOut)
		}
	}

	if !m.ProfitPaidOut.Equal(m.ProfitAmount) {
		t.Fatalf("profit should be fully paid after lifetime, got %s", m.ProfitPaidOut)
	}
}

func TestDrain(t *testing.T) {
	t.Parallel()

	m := fixture()
	m.ProfitPaidOut = d("48")

	at := t0.Add(10000 * time.Second)
	st := Compute(m, at)
	Drain(m, st, at)

	if !m.CoinBoxCurrent.IsZero() {
		t.Fatalf("box not emptied: %s", m.CoinBoxCurrent)
	}
	if !m.ProfitPaidOut.Equal(d("50")) || !m.PrincipalPaidOut.Equal(d("8")) {
		t.Fatalf("counters: profit %s principal %s", m.ProfitPaidOut, m.PrincipalPaidOut)
	}
	if !m.AccumulatedIncome.Equal(d("10")) || !m.LastCalculatedAt.Equal(at) {
		t.Fatalf("checkpoint: income %s last %s", m.AccumulatedIncome, m.LastCalculatedAt)
	}
}
