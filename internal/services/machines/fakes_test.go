package machines

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/repos/fundsources"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	machinerepo "github.com/fastprodman/fortunefloor/internal/repos/machines"
	"github.com/fastprodman/fortunefloor/internal/repos/transactions"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
	"github.com/fastprodman/fortunefloor/internal/settings"
	"github.com/fastprodman/fortunefloor/internal/tiers"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// store is the shared state behind the fake repositories. Reads hand out
// copies so the service only changes state through Update calls.
type store struct {
	mu       sync.Mutex
	users    map[uint64]*domain.User
	machines map[uuid.UUID]*domain.Machine
	listings map[uuid.UUID]*domain.AuctionListing
	sources  map[uuid.UUID]*domain.FundSource
	entries  []*domain.LedgerEntry
}

func newStore() *store {
	return &store{
		users:    map[uint64]*domain.User{},
		machines: map[uuid.UUID]*domain.Machine{},
		listings: map[uuid.UUID]*domain.AuctionListing{},
		sources:  map[uuid.UUID]*domain.FundSource{},
	}
}

func (s *store) user(id uint64) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := *s.users[id]

	return &u
}

func (s *store) machine(id uuid.UUID) *domain.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *s.machines[id]

	return &m
}

func (s *store) entriesOf(typ domain.EntryType) []*domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.LedgerEntry
	for _, e := range s.entries {
		if e.Type == typ {
			out = append(out, e)
		}
	}

	return out
}

type fakeUsers struct{ *store }

var _ users.Users = fakeUsers{}

func (f fakeUsers) get(id uint64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}

	return u, nil
}

func (f fakeUsers) Ensure(_ *sql.Tx, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		f.users[id] = &domain.User{
			ID:                   id,
			FortuneBalance:       decimal.Zero,
			TotalFreshDeposits:   decimal.Zero,
			TotalProfitCollected: decimal.Zero,
		}
	}

	return nil
}

func (f fakeUsers) Exists(_ *sql.Tx, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.get(id)

	return err
}

func (f fakeUsers) Get(_ context.Context, id uint64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.get(id)
	if err != nil {
		return nil, err
	}
	cp := *u

	return &cp, nil
}

func (f fakeUsers) LockAndGet(_ *sql.Tx, id uint64) (*domain.User, error) {
	return f.Get(context.Background(), id)
}

func (f fakeUsers) IncreaseBalance(_ *sql.Tx, id uint64, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.FortuneBalance = u.FortuneBalance.Add(amount)

	return nil
}

func (f fakeUsers) DecreaseBalance(_ *sql.Tx, id uint64, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.get(id)
	if err != nil {
		return err
	}
	if u.FortuneBalance.LessThan(amount) {
		return users.ErrInsufficientFunds
	}
	u.FortuneBalance = u.FortuneBalance.Sub(amount)

	return nil
}

func (f fakeUsers) AddTrackers(_ *sql.Tx, id uint64, fresh, profit decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.TotalFreshDeposits = u.TotalFreshDeposits.Add(fresh)
	u.TotalProfitCollected = u.TotalProfitCollected.Add(profit)

	return nil
}

func (f fakeUsers) DeductTrackers(_ *sql.Tx, id uint64, fromProfit, fromFresh decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.TotalProfitCollected = decimal.Max(u.TotalProfitCollected.Sub(fromProfit), decimal.Zero)
	u.TotalFreshDeposits = decimal.Max(u.TotalFreshDeposits.Sub(fromFresh), decimal.Zero)

	return nil
}

func (f fakeUsers) RaiseMaxTier(_ *sql.Tx, id uint64, tier int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.get(id)
	if err != nil {
		return err
	}
	if tier > u.MaxTierReached {
		u.MaxTierReached = tier
	}

	return nil
}

func (f fakeUsers) RaiseMaxTierUnlocked(_ *sql.Tx, id uint64, tier int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.get(id)
	if err != nil {
		return err
	}
	if tier > u.MaxTierUnlocked {
		u.MaxTierUnlocked = tier
	}

	return nil
}

type fakeMachines struct{ *store }

var _ machinerepo.Machines = fakeMachines{}

func (f fakeMachines) Insert(_ *sql.Tx, m *domain.Machine) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *m
	f.machines[m.ID] = &cp

	return nil
}

func (f fakeMachines) LockByID(_ *sql.Tx, id uuid.UUID) (*domain.Machine, error) {
	return f.GetByID(context.Background(), id)
}

func (f fakeMachines) GetByID(_ context.Context, id uuid.UUID) (*domain.Machine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.machines[id]
	if !ok {
		return nil, machinerepo.ErrMachineNotFound
	}
	cp := *m

	return &cp, nil
}

func (f fakeMachines) Update(_ *sql.Tx, m *domain.Machine) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.machines[m.ID]; !ok {
		return machinerepo.ErrMachineNotFound
	}
	cp := *m
	f.machines[m.ID] = &cp

	return nil
}

func (f fakeMachines) ListByOwner(_ context.Context, owner uint64, statuses ...domain.Status) ([]*domain.Machine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.Machine
	for _, m := range f.machines {
		if m.OwnerID != owner || !hasStatus(m.Status, statuses) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func hasStatus(s domain.Status, statuses []domain.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, x := range statuses {
		if x == s {
			return true
		}
	}

	return false
}

func (f fakeMachines) sortedIDs(keep func(*domain.Machine) bool) []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []uuid.UUID
	for id, m := range f.machines {
		if keep(m) {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	return ids
}

func (f fakeMachines) ListExpiring(_ context.Context, now time.Time, limit int, after uuid.UUID) ([]uuid.UUID, error) {
	ids := f.sortedIDs(func(m *domain.Machine) bool {
		return m.Status == domain.StatusActive && !m.ExpiresAt.After(now) && m.ID.String() > after.String()
	})

	if len(ids) > limit {
		ids = ids[:limit]
	}

	return ids, nil
}

func (f fakeMachines) ListAutoCollect(_ context.Context, limit int, after uuid.UUID) ([]uuid.UUID, error) {
	ids := f.sortedIDs(func(m *domain.Machine) bool {
		return m.Status == domain.StatusActive && m.AutoCollectEnabled && m.ID.String() > after.String()
	})

	if len(ids) > limit {
		ids = ids[:limit]
	}

	return ids, nil
}

func (f fakeMachines) HasRunningOfTier(_ *sql.Tx, owner uint64, tier int) (bool, error) {
	ids := f.sortedIDs(func(m *domain.Machine) bool {
		return m.OwnerID == owner && m.Tier == tier &&
			(m.Status == domain.StatusActive || m.Status == domain.StatusListedAuction)
	})

	return len(ids) > 0, nil
}

func (f fakeMachines) CountCompletedOfTier(_ *sql.Tx, owner uint64, tier int) (int, error) {
	ids := f.sortedIDs(func(m *domain.Machine) bool {
		return m.OwnerID == owner && m.Tier == tier && m.Status.Terminal()
	})

	return len(ids), nil
}

func (f fakeMachines) ListProfitSources(_ *sql.Tx, owner uint64, limit int) ([]uuid.UUID, error) {
	ids := f.sortedIDs(func(m *domain.Machine) bool {
		return m.OwnerID == owner && m.ProfitPaidOut.IsPositive()
	})

	if len(ids) > limit {
		ids = ids[:limit]
	}

	return ids, nil
}

type fakeListings struct{ *store }

var _ listings.Listings = fakeListings{}

func (f fakeListings) Insert(_ *sql.Tx, l *domain.AuctionListing) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, x := range f.listings {
		if x.MachineID == l.MachineID && x.Status == domain.ListingPending {
			return listings.ErrAlreadyListed
		}
	}

	cp := *l
	f.listings[l.ID] = &cp

	return nil
}

func (f fakeListings) find(keep func(*domain.AuctionListing) bool) (*domain.AuctionListing, error) {
	pending := f.pending(keep)
	if len(pending) == 0 {
		return nil, listings.ErrListingNotFound
	}

	return pending[0], nil
}

// pending returns copies of matching listings in queue order.
func (f fakeListings) pending(keep func(*domain.AuctionListing) bool) []*domain.AuctionListing {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.AuctionListing
	for _, l := range f.listings {
		if keep(l) {
			cp := *l
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	return out
}

func (f fakeListings) LockByID(_ *sql.Tx, id uuid.UUID) (*domain.AuctionListing, error) {
	return f.GetByID(context.Background(), id)
}

func (f fakeListings) LockFirstPending(_ *sql.Tx, tier int) (*domain.AuctionListing, error) {
	return f.FirstPending(context.Background(), tier)
}

func (f fakeListings) LockPendingByMachine(_ *sql.Tx, machineID uuid.UUID) (*domain.AuctionListing, error) {
	return f.find(func(l *domain.AuctionListing) bool {
		return l.MachineID == machineID && l.Status == domain.ListingPending
	})
}

func (f fakeListings) Update(_ *sql.Tx, l *domain.AuctionListing) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *l
	f.listings[l.ID] = &cp

	return nil
}

func (f fakeListings) GetByID(_ context.Context, id uuid.UUID) (*domain.AuctionListing, error) {
	return f.find(func(l *domain.AuctionListing) bool { return l.ID == id })
}

func (f fakeListings) FirstPending(_ context.Context, tier int) (*domain.AuctionListing, error) {
	return f.find(func(l *domain.AuctionListing) bool {
		return l.Tier == tier && l.Status == domain.ListingPending
	})
}

func (f fakeListings) CountPending(_ context.Context, tier int) (int, error) {
	return len(f.pending(func(l *domain.AuctionListing) bool {
		return l.Tier == tier && l.Status == domain.ListingPending
	})), nil
}

func (f fakeListings) Position(_ context.Context, id uuid.UUID) (int, error) {
	target, err := f.GetByID(context.Background(), id)
	if err != nil {
		return 0, err
	}

	queue := f.pending(func(l *domain.AuctionListing) bool {
		return l.Tier == target.Tier && l.Status == domain.ListingPending
	})
	for i, l := range queue {
		if l.ID == id {
			return i + 1, nil
		}
	}

	return 0, listings.ErrListingNotFound
}

func (f fakeListings) ListBySeller(_ context.Context, seller uint64, limit int) ([]*domain.AuctionListing, error) {
	out := f.pending(func(l *domain.AuctionListing) bool { return l.SellerID == seller })
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (f fakeListings) ListExpiredPending(_ context.Context, now time.Time, limit int, after uuid.UUID) ([]uuid.UUID, error) {
	pending := f.pending(func(l *domain.AuctionListing) bool {
		return l.Status == domain.ListingPending && l.ID.String() > after.String()
	})
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID.String() < pending[j].ID.String() })

	var ids []uuid.UUID
	for _, l := range pending {
		f.mu.Lock()
		m := f.machines[l.MachineID]
		expired := m != nil && !m.ExpiresAt.After(now)
		f.mu.Unlock()

		if expired && len(ids) < limit {
			ids = append(ids, l.ID)
		}
	}

	return ids, nil
}

func (f fakeListings) QueueSummary(_ context.Context) ([]listings.QueueStat, error) {
	byTier := map[int]*listings.QueueStat{}
	for _, l := range f.pending(func(l *domain.AuctionListing) bool { return l.Status == domain.ListingPending }) {
		st, ok := byTier[l.Tier]
		if !ok {
			st = &listings.QueueStat{Tier: l.Tier, OldestAt: l.CreatedAt}
			byTier[l.Tier] = st
		}
		st.Pending++
	}

	out := make([]listings.QueueStat, 0, len(byTier))
	for _, st := range byTier {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })

	return out, nil
}

type fakeSources struct{ *store }

var _ fundsources.FundSources = fakeSources{}

func (f fakeSources) Insert(_ *sql.Tx, fs *domain.FundSource) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sources[fs.MachineID] = fs

	return nil
}

func (f fakeSources) GetByMachine(_ *sql.Tx, id uuid.UUID) (*domain.FundSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fs, ok := f.sources[id]
	if !ok {
		return nil, fundsources.ErrFundSourceNotFound
	}

	return fs, nil
}

type fakeLedger struct{ *store }

var _ transactions.Transactions = fakeLedger{}

func (f fakeLedger) Insert(_ *sql.Tx, e *domain.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, x := range f.entries {
		if x.OperationID == e.OperationID {
			return transactions.ErrDuplicateTransaction
		}
	}

	f.entries = append(f.entries, e)

	return nil
}

func (f fakeLedger) ListByUser(_ context.Context, userID uint64, limit int, types ...domain.EntryType) ([]*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.LedgerEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.entries[i]
		if e.UserID != userID {
			continue
		}
		if len(types) > 0 && !hasType(e.Type, types) {
			continue
		}
		out = append(out, e)
	}

	return out, nil
}

func hasType(t domain.EntryType, types []domain.EntryType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}

	return false
}

type staticEconomy struct{ econ *settings.Economy }

func (s staticEconomy) Economy(context.Context) *settings.Economy { return s.econ }

type fixedRoller struct{ won bool }

func (r fixedRoller) Roll(decimal.Decimal) (bool, error) { return r.won, nil }

type harness struct {
	svc   *Service
	st    *store
	mock  sqlmock.Sqlmock
	now   time.Time
	econ  *settings.Economy
	clock func() time.Time
}

func newHarness(t *testing.T, won bool) *harness {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{st: newStore(), mock: mock, now: t0, econ: settings.Defaults()}
	h.clock = func() time.Time { return h.now }

	u := fakeUsers{h.st}
	h.svc = New(Deps{
		DB:       db,
		Users:    u,
		Machines: fakeMachines{h.st},
		Listings: fakeListings{h.st},
		Funds:    fundsource.NewLedger(u, fakeSources{h.st}),
		Ledger:   fakeLedger{h.st},
		Catalog:  tiers.NewCatalog(nil, time.Hour),
		Economy:  staticEconomy{h.econ},
		Roller:   fixedRoller{won: won},
		Clock:    h.clock,
	})

	return h
}

func (h *harness) expectCommit() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

func (h *harness) expectRollback() {
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()
}

func (h *harness) verify(t *testing.T) {
	t.Helper()

	err := h.mock.ExpectationsWereMet()
	if err != nil {
		t.Fatalf("transaction expectations: %v", err)
	}
}

// addUser seeds a user whose whole balance is fresh deposits.
func (h *harness) addUser(id uint64, balance string) {
	h.st.users[id] = &domain.User{
		ID:                   id,
		FortuneBalance:       d(balance),
		TotalFreshDeposits:   d(balance),
		TotalProfitCollected: decimal.Zero,
		MaxTierUnlocked:      1,
	}
}

// addMachine seeds a first-round machine of tier bought at startedAt, paid
// with fresh deposits only.
func (h *harness) addMachine(owner uint64, tier int, startedAt time.Time) *domain.Machine {
	t, err := h.svc.catalog.Get(context.Background(), tier)
	if err != nil {
		panic(err)
	}

	m := domain.NewMachine(owner, t, 1, decimal.Zero, startedAt)
	h.st.machines[m.ID] = m
	h.st.sources[m.ID] = &domain.FundSource{
		MachineID:           m.ID,
		FreshDepositAmount:  t.Price,
		ProfitDerivedAmount: decimal.Zero,
	}

	cp := *m

	return &cp
}
