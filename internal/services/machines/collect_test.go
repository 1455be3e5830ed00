package machines

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

func TestCollect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		elapsed   time.Duration
		overclock string
		wantErr   error
		wantMult  string
		expired   bool
	}{
		{name: "box_not_full", elapsed: time.Hour, wantErr: domain.ErrInvalidState},
		{name: "full_box", elapsed: 13 * time.Hour, wantMult: "1"},
		{name: "overclock_scales_credit", elapsed: 13 * time.Hour, overclock: "1.5", wantMult: "1.5"},
		{name: "past_expiry_expires", elapsed: 4 * 24 * time.Hour, wantMult: "1", expired: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, false)
			h.addUser(1, "0")
			m := h.addMachine(1, 1, t0)
			if tt.overclock != "" {
				h.st.machines[m.ID].OverclockMultiplier = d(tt.overclock)
			}
			h.now = t0.Add(tt.elapsed)

			if tt.wantErr != nil {
				h.expectRollback()
			} else {
				h.expectCommit()
			}

			res, err := h.svc.Collect(context.Background(), 1, m.ID, "op-"+tt.name)
			h.verify(t)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
				if !h.st.user(1).FortuneBalance.IsZero() {
					t.Fatalf("failed collect must not credit")
				}
				return
			}
			if err != nil {
				t.Fatalf("collect: %v", err)
			}

			box := m.CoinBoxCapacity
			want := box.Mul(d(tt.wantMult))

			if !res.Box.Equal(box) || !res.Credited.Equal(want) {
				t.Fatalf("box %s credited %s, want box %s credited %s", res.Box, res.Credited, box, want)
			}

			u := h.st.user(1)
			if !u.FortuneBalance.Equal(want) {
				t.Fatalf("balance: want %s, got %s", want, u.FortuneBalance)
			}
			// a fresh tier-1 box is all profit, overclock bonus included
			if !u.TotalProfitCollected.Equal(want) || !u.TotalFreshDeposits.IsZero() {
				t.Fatalf("trackers: profit %s fresh %s", u.TotalProfitCollected, u.TotalFreshDeposits)
			}

			got := h.st.machine(m.ID)
			if !got.CoinBoxCurrent.IsZero() {
				t.Fatalf("box not drained: %s", got.CoinBoxCurrent)
			}
			if !got.ProfitPaidOut.Equal(box) {
				t.Fatalf("counters must use the pre-multiplier split: profit paid %s", got.ProfitPaidOut)
			}
			if got.HasOverclock() {
				t.Fatalf("overclock must be consumed")
			}

			if tt.expired {
				if got.Status != domain.StatusExpired || u.MaxTierUnlocked != 2 {
					t.Fatalf("status %s unlocked %d", got.Status, u.MaxTierUnlocked)
				}
			} else if got.Status != domain.StatusActive {
				t.Fatalf("status %s", got.Status)
			}

			entries := h.st.entriesOf(domain.EntryMachineIncome)
			if len(entries) != 1 || entries[0].OperationID != "op-"+tt.name || !entries[0].NetAmount.Equal(want) {
				t.Fatalf("unexpected ledger entries %+v", entries)
			}
		})
	}
}

func TestCollect_DuplicateOperation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.addUser(1, "0")
	m := h.addMachine(1, 1, t0)

	h.now = t0.Add(13 * time.Hour)
	h.expectCommit()

	_, err := h.svc.Collect(context.Background(), 1, m.ID, "same-op")
	if err != nil {
		t.Fatalf("first collect: %v", err)
	}

	h.now = t0.Add(26 * time.Hour)
	h.expectRollback()

	_, err = h.svc.Collect(context.Background(), 1, m.ID, "same-op")
	if !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("want ErrDuplicateOperation, got %v", err)
	}

	h.verify(t)
}

func TestCollect_Ownership(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.addUser(1, "0")
	h.addUser(2, "0")
	m := h.addMachine(1, 1, t0)
	h.now = t0.Add(13 * time.Hour)

	h.expectRollback()

	_, err := h.svc.Collect(context.Background(), 2, m.ID, "")
	if !errors.Is(err, domain.ErrOwnership) {
		t.Fatalf("want ErrOwnership, got %v", err)
	}

	h.verify(t)
}

func TestCollect_ExpiredEmptyBoxIsNoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.addUser(1, "0")
	m := h.addMachine(1, 1, t0)
	h.st.machines[m.ID].Status = domain.StatusExpired
	h.st.machines[m.ID].CoinBoxCurrent = decimal.Zero
	h.now = t0.Add(5 * 24 * time.Hour)

	h.expectCommit()

	res, err := h.svc.Collect(context.Background(), 1, m.ID, "")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	h.verify(t)

	if !res.Credited.IsZero() || !res.Expired {
		t.Fatalf("want zero result on expired machine, got %+v", res)
	}
	if len(h.st.entries) != 0 {
		t.Fatalf("no ledger rows expected, got %d", len(h.st.entries))
	}
}

func TestComputeStateAndList(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.addUser(1, "0")
	a := h.addMachine(1, 1, t0)
	h.addMachine(1, 2, t0.Add(time.Minute))
	h.now = t0.Add(time.Hour)

	v, err := h.svc.ComputeState(context.Background(), 1, a.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	want := a.RatePerSecond.Mul(decimal.NewFromInt(3600))
	if !v.State.CoinBoxCurrent.Equal(want) || v.State.CanCollect {
		t.Fatalf("box %s can collect %v, want %s and false", v.State.CoinBoxCurrent, v.State.CanCollect, want)
	}

	_, err = h.svc.ComputeState(context.Background(), 2, a.ID)
	if !errors.Is(err, domain.ErrOwnership) {
		t.Fatalf("want ErrOwnership, got %v", err)
	}

	views, err := h.svc.ListMachines(context.Background(), 1, domain.StatusActive)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 || views[0].Machine.ID != a.ID {
		t.Fatalf("unexpected list %+v", views)
	}

	if n := len(h.svc.Tiers(context.Background())); n != 10 {
		t.Fatalf("want 10 visible default tiers, got %d", n)
	}
}
