package machines

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/shopspring/decimal"
)

func TestPurchase_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		balance string
		tier    int
		running bool
		wantErr error
	}{
		{name: "insufficient_balance", balance: "5", tier: 1, wantErr: domain.ErrInsufficientBalance},
		{name: "tier_above_global_limit", balance: "1000", tier: 4, wantErr: domain.ErrTierLocked},
		{name: "already_running_tier", balance: "100", tier: 1, running: true, wantErr: domain.ErrInvalidState},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, false)
			h.addUser(1, tt.balance)
			if tt.running {
				h.addMachine(1, tt.tier, t0)
			}

			h.expectRollback()

			_, err := h.svc.Purchase(context.Background(), 1, tt.tier, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}

			h.verify(t)

			if !h.st.user(1).FortuneBalance.Equal(d(tt.balance)) {
				t.Fatalf("rejected purchase must not debit")
			}
		})
	}
}

func TestPurchase_UnknownTier(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.addUser(1, "100")

	_, err := h.svc.Purchase(context.Background(), 1, 42, "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	h.verify(t)
}

func TestPurchase_FirstMachine(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)

	h.expectRollback()

	// unknown users are created on first purchase and cannot afford anything
	_, err := h.svc.Purchase(context.Background(), 9, 1, "")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance for a new user, got %v", err)
	}
	if _, ok := h.st.users[9]; !ok {
		t.Fatalf("user 9 should have been created")
	}

	h.addUser(1, "100")
	h.expectCommit()

	res, err := h.svc.Purchase(context.Background(), 1, 1, "p-1")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	m := res.Machine
	if m.ReinvestRound != 1 || !m.ProfitAmount.Equal(d("4.5")) || !m.TotalYield.Equal(d("14.5")) {
		t.Fatalf("machine round %d profit %s yield %s", m.ReinvestRound, m.ProfitAmount, m.TotalYield)
	}
	if !m.ExpiresAt.Equal(t0.AddDate(0, 0, 3)) {
		t.Fatalf("expires %s", m.ExpiresAt)
	}

	u := h.st.user(1)
	if !u.FortuneBalance.Equal(d("90")) || u.MaxTierReached != 1 {
		t.Fatalf("user balance %s max tier %d", u.FortuneBalance, u.MaxTierReached)
	}

	fs := h.st.sources[m.ID]
	if fs == nil || !fs.FreshDepositAmount.Equal(d("10")) || !fs.ProfitDerivedAmount.IsZero() || len(fs.SourceMachineIDs) != 0 {
		t.Fatalf("fund source %+v", fs)
	}

	e := h.st.entriesOf(domain.EntryMachinePurchase)
	if len(e) != 1 || e[0].OperationID != "p-1" || !e[0].FromFresh.Equal(d("10")) {
		t.Fatalf("ledger %+v", e)
	}
}

func TestPurchase_ReinvestAndProvenance(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.addUser(1, "100")
	u := h.st.users[1]
	u.TotalFreshDeposits = d("50")
	u.TotalProfitCollected = d("50")
	u.MaxTierReached = 1

	old := h.addMachine(1, 1, t0.Add(-10*24*time.Hour))
	h.st.machines[old.ID].Status = domain.StatusExpired
	h.st.machines[old.ID].ProfitPaidOut = d("4.5")

	h.expectCommit()

	res, err := h.svc.Purchase(context.Background(), 1, 1, "")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	h.verify(t)

	m := res.Machine
	// second round of the tier: 35% less profit
	wantProfit := d("4.5").Mul(decimal.NewFromInt(1).Sub(d("0.35")))
	if m.ReinvestRound != 2 || !m.ProfitAmount.Equal(wantProfit) {
		t.Fatalf("round %d profit %s, want 2 and %s", m.ReinvestRound, m.ProfitAmount, wantProfit)
	}

	if !res.Breakdown.Fresh.Equal(d("5")) || !res.Breakdown.Profit.Equal(d("5")) {
		t.Fatalf("breakdown %+v", res.Breakdown)
	}

	fs := h.st.sources[m.ID]
	if len(fs.SourceMachineIDs) != 1 || fs.SourceMachineIDs[0] != old.ID {
		t.Fatalf("source machines %v", fs.SourceMachineIDs)
	}
}

func TestPurchase_SkipsExpiredListing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.addUser(1, "0")
	h.addUser(2, "100")
	m := h.addMachine(1, 1, t0)
	h.now = t0.Add(time.Hour)

	h.expectCommit()

	_, err := h.svc.ListOnAuction(context.Background(), 1, m.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	h.now = t0.Add(4 * 24 * time.Hour)
	h.expectCommit()

	res, err := h.svc.Purchase(context.Background(), 2, 1, "")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	h.verify(t)

	if res.Listing != nil {
		t.Fatalf("expired listing must not be settled")
	}
	if got := h.st.machine(m.ID); got.Status != domain.StatusExpired {
		t.Fatalf("listed machine past lifespan: %s", got.Status)
	}
	if seller := h.st.user(1); !seller.FortuneBalance.IsZero() || seller.MaxTierUnlocked != 2 {
		t.Fatalf("seller balance %s unlocked %d", seller.FortuneBalance, seller.MaxTierUnlocked)
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.addUser(1, "20")

	q, err := h.svc.Quote(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.CanAfford || q.Locked {
		t.Fatalf("tier 2 costs 30 and is public: %+v", q)
	}

	q, err = h.svc.Quote(context.Background(), 77, 5)
	if err != nil {
		t.Fatalf("quote for unknown user: %v", err)
	}
	if !q.Locked || q.CanAfford {
		t.Fatalf("tier 5 is above the global limit: %+v", q)
	}
}
