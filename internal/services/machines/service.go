// Package machines orchestrates every machine operation: purchase, collection,
// the three exits, gambling, upgrades and the lifecycle sweeps.
//
// Each mutation runs in one database transaction. The machine row is locked
// first (after its auction listing when there is one), then user rows in
// ascending id order. Accrual is always recomputed from the locked row.
// Notifications, journal records and metrics are emitted after commit.
package machines

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/fundsource"
	"github.com/fastprodman/fortunefloor/internal/gamble"
	"github.com/fastprodman/fortunefloor/internal/infra/metrics"
	"github.com/fastprodman/fortunefloor/internal/infra/pgutils"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/fastprodman/fortunefloor/internal/recorder"
	pgfundsources "github.com/fastprodman/fortunefloor/internal/repos/fundsources/postgres"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	pglistings "github.com/fastprodman/fortunefloor/internal/repos/listings/postgres"
	machinerepo "github.com/fastprodman/fortunefloor/internal/repos/machines"
	pgmachines "github.com/fastprodman/fortunefloor/internal/repos/machines/postgres"
	"github.com/fastprodman/fortunefloor/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/fortunefloor/internal/repos/transactions/postgres"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
	pgusers "github.com/fastprodman/fortunefloor/internal/repos/users/postgres"
	"github.com/fastprodman/fortunefloor/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TierCatalog is the read side of tiers.Catalog.
type TierCatalog interface {
	Get(ctx context.Context, tier int) (domain.TierDefinition, error)
	List(ctx context.Context) []domain.TierDefinition
}

// EconomyProvider hands out the current economy settings.
type EconomyProvider interface {
	Economy(ctx context.Context) *settings.Economy
}

type Deps struct {
	DB       *sql.DB
	Users    users.Users
	Machines machinerepo.Machines
	Listings listings.Listings
	Funds    *fundsource.Ledger
	Ledger   transactions.Transactions
	Catalog  TierCatalog
	Economy  EconomyProvider
	Roller   gamble.Roller
	Notifier notify.Sink
	Recorder recorder.Recorder
	Clock    func() time.Time
	// BatchSize caps how many rows one sweep pass picks up.
	BatchSize int
}

type Service struct {
	db       *sql.DB
	users    users.Users
	machines machinerepo.Machines
	listings listings.Listings
	funds    *fundsource.Ledger
	ledger   transactions.Transactions
	catalog  TierCatalog
	econ     EconomyProvider
	roller   gamble.Roller
	notifier notify.Sink
	recorder recorder.Recorder
	clock    func() time.Time
	batch    int
}

// New builds a service from explicit dependencies. Optional ones default to a
// crypto roller, no-op sinks and the wall clock.
func New(d Deps) *Service {
	s := &Service{
		db:       d.DB,
		users:    d.Users,
		machines: d.Machines,
		listings: d.Listings,
		funds:    d.Funds,
		ledger:   d.Ledger,
		catalog:  d.Catalog,
		econ:     d.Economy,
		roller:   d.Roller,
		notifier: d.Notifier,
		recorder: d.Recorder,
		clock:    d.Clock,
		batch:    d.BatchSize,
	}

	if s.roller == nil {
		s.roller = gamble.NewCryptoRoller()
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.recorder == nil {
		s.recorder = recorder.NewNoopRecorder()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.batch <= 0 {
		s.batch = 200
	}

	return s
}

// NewPostgres wires the service to the postgres repositories.
// Optional fields of d (roller, sinks, clock, batch size) are kept.
func NewPostgres(dbx *sql.DB, catalog TierCatalog, econ EconomyProvider, d Deps) *Service {
	u := pgusers.New(dbx)

	d.DB = dbx
	d.Users = u
	d.Machines = pgmachines.New(dbx)
	d.Listings = pglistings.New(dbx)
	d.Funds = fundsource.NewLedger(u, pgfundsources.New(dbx))
	d.Ledger = pgtransactions.New(dbx)
	d.Catalog = catalog
	d.Economy = econ

	return New(d)
}

func (s *Service) now() time.Time {
	return domain.Truncate(s.clock())
}

// run executes fn in a transaction and records the operation metrics.
func (s *Service) run(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	start := time.Now()

	err := pgutils.WithTx(ctx, s.db, fn)

	metrics.ObserveOperation(op, err, time.Since(start))

	return err
}

// lockOwned locks the machine and checks that userID owns it.
func (s *Service) lockOwned(tx *sql.Tx, userID uint64, machineID uuid.UUID) (*domain.Machine, error) {
	m, err := s.machines.LockByID(tx, machineID)
	if err != nil {
		return nil, err
	}

	if m.OwnerID != userID {
		return nil, domain.ErrOwnership
	}

	return m, nil
}

func (s *Service) getOwned(ctx context.Context, userID uint64, machineID uuid.UUID) (*domain.Machine, error) {
	m, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}

	if m.OwnerID != userID {
		return nil, domain.ErrOwnership
	}

	return m, nil
}

// debit takes amount from a locked user. The returned breakdown is the
// provenance mix of the spent money, for the ledger row only.
func (s *Service) debit(tx *sql.Tx, userID uint64, amount decimal.Decimal) (fundsource.Breakdown, error) {
	u, err := s.users.LockAndGet(tx, userID)
	if err != nil {
		return fundsource.Breakdown{}, err
	}

	if u.FortuneBalance.LessThan(amount) {
		return fundsource.Breakdown{}, users.ErrInsufficientFunds
	}

	b := fundsource.CalculateBreakdown(u.FortuneBalance, u.TotalFreshDeposits, amount)

	err = s.users.DecreaseBalance(tx, userID, amount)
	if err != nil {
		return fundsource.Breakdown{}, err
	}

	return b, nil
}

// expireLocked freezes the box at expiry and unlocks the next tier for the owner.
func (s *Service) expireLocked(tx *sql.Tx, m *domain.Machine, now time.Time) error {
	if m.Status != domain.StatusExpired {
		at := now
		if at.After(m.ExpiresAt) {
			at = m.ExpiresAt
		}
		accrual.Checkpoint(m, accrual.Compute(m, at), at)

		err := m.TransitionTo(domain.StatusExpired)
		if err != nil {
			return err
		}
	}

	return s.users.RaiseMaxTierUnlocked(tx, m.OwnerID, m.Tier+1)
}

var noBreakdown = fundsource.Breakdown{Fresh: decimal.Zero, Profit: decimal.Zero}

func opID(id string) string {
	if id == "" {
		return uuid.NewString()
	}

	return id
}

func newEntry(
	operationID string,
	userID uint64,
	machineID uuid.UUID,
	typ domain.EntryType,
	amount decimal.Decimal,
	b fundsource.Breakdown,
	now time.Time,
) *domain.LedgerEntry {
	mid := machineID

	return &domain.LedgerEntry{
		ID:          uuid.New(),
		OperationID: operationID,
		UserID:      userID,
		MachineID:   &mid,
		Type:        typ,
		Amount:      amount,
		TaxAmount:   decimal.Zero,
		TaxRate:     decimal.Zero,
		NetAmount:   amount,
		FromFresh:   b.Fresh,
		FromProfit:  b.Profit,
		Metadata:    map[string]any{},
		CreatedAt:   now,
	}
}

// afterCommit publishes an operation. Failures are logged and never surface.
func (s *Service) afterCommit(ctx context.Context, ev notify.Event, e *domain.LedgerEntry, credited bool) {
	s.notifier.Notify(ctx, ev)

	if e == nil {
		return
	}

	err := s.recorder.RecordOperation(&recorder.Operation{
		OperationID: e.OperationID,
		Kind:        string(e.Type),
		UserID:      e.UserID,
		MachineID:   ev.MachineID,
		Amount:      e.NetAmount,
		Details:     e.Metadata,
		At:          e.CreatedAt,
	})
	if err != nil {
		slog.WarnContext(ctx, "journal operation", "operation_id", e.OperationID, "error", err)
	}

	if credited {
		f, _ := e.NetAmount.Float64()
		metrics.AddPayout(string(e.Type), f)
	}
}
