package machines

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/fortunefloor/internal/accrual"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/infra/metrics"
	"github.com/fastprodman/fortunefloor/internal/infra/pgutils"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/fastprodman/fortunefloor/internal/recorder"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SweepExpire      = "expire"
	SweepAutoCollect = "auto_collect"
)

// SweepResult counts what one sweep pass did. Skipped rows changed between
// the scan and the lock, or had nothing to do.
type SweepResult struct {
	Scanned   int
	Succeeded int
	Skipped   int
	Failed    int
}

func (r *SweepResult) track(done bool, err error) {
	r.Scanned++

	switch {
	case err != nil:
		r.Failed++
	case done:
		r.Succeeded++
	default:
		r.Skipped++
	}
}

// ExpireSweep moves active machines past their lifespan to expired, then
// expires pending listings whose machine ran out. Both lists are paged until
// drained. Every row gets its own transaction; a failure is logged and the
// pass continues.
func (s *Service) ExpireSweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	now := s.now()

	var res SweepResult

	err := s.pageIDs(ctx, &res,
		func(after uuid.UUID) ([]uuid.UUID, error) {
			return s.machines.ListExpiring(ctx, now, s.batch, after)
		},
		func(id uuid.UUID) (bool, error) {
			done, err := s.expireMachine(ctx, id, now)
			if err != nil {
				slog.ErrorContext(ctx, "expire machine", "machine_id", id, "error", err)
			}
			return done, err
		},
	)
	if err != nil {
		s.finishSweep(ctx, SweepExpire, res, start)
		return res, fmt.Errorf("list expiring machines: %w", err)
	}

	err = s.pageIDs(ctx, &res,
		func(after uuid.UUID) ([]uuid.UUID, error) {
			return s.listings.ListExpiredPending(ctx, now, s.batch, after)
		},
		func(id uuid.UUID) (bool, error) {
			done, err := s.expireListing(ctx, id, now)
			if err != nil {
				slog.ErrorContext(ctx, "expire listing", "listing_id", id, "error", err)
			}
			return done, err
		},
	)
	if err != nil {
		s.finishSweep(ctx, SweepExpire, res, start)
		return res, fmt.Errorf("list expired listings: %w", err)
	}

	s.finishSweep(ctx, SweepExpire, res, start)

	return res, nil
}

// pageIDs feeds every id returned by list to handle, one page of s.batch at a
// time, until a short page or a cancelled context.
func (s *Service) pageIDs(
	ctx context.Context,
	res *SweepResult,
	list func(after uuid.UUID) ([]uuid.UUID, error),
	handle func(id uuid.UUID) (bool, error),
) error {
	var after uuid.UUID

	for ctx.Err() == nil {
		ids, err := list(after)
		if err != nil {
			return err
		}

		for _, id := range ids {
			if ctx.Err() != nil {
				return nil
			}

			res.track(handle(id))
		}

		if len(ids) < s.batch {
			return nil
		}
		after = ids[len(ids)-1]
	}

	return nil
}

func (s *Service) expireMachine(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	var m *domain.Machine

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		locked, err := s.machines.LockByID(tx, id)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		if locked.Status != domain.StatusActive || now.Before(locked.ExpiresAt) {
			return nil
		}

		err = s.expireLocked(tx, locked, now)
		if err != nil {
			return err
		}

		err = s.machines.Update(tx, locked)
		if err != nil {
			return fmt.Errorf("update machine: %w", err)
		}

		m = locked

		return nil
	})
	if err != nil || m == nil {
		return false, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventExpired,
		UserID:    m.OwnerID,
		MachineID: m.ID,
		Data:      map[string]any{"coin_box": m.CoinBoxCurrent.String()},
		At:        now,
	})

	return true, nil
}

func (s *Service) expireListing(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	var m *domain.Machine

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		l, err := s.listings.LockByID(tx, id)
		if err != nil {
			return fmt.Errorf("lock listing: %w", err)
		}

		if l.Status != domain.ListingPending {
			return nil
		}

		locked, err := s.machines.LockByID(tx, l.MachineID)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		if now.Before(locked.ExpiresAt) {
			return nil
		}

		err = s.expireListingLocked(tx, l, locked, now)
		if err != nil {
			return err
		}

		m = locked

		return nil
	})
	if err != nil || m == nil {
		return false, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventExpired,
		UserID:    m.OwnerID,
		MachineID: m.ID,
		Data:      map[string]any{"listing_id": id.String()},
		At:        now,
	})

	return true, nil
}

// expireListingLocked closes a pending listing whose machine ran out and
// expires the machine with it.
func (s *Service) expireListingLocked(tx *sql.Tx, l *domain.AuctionListing, m *domain.Machine, now time.Time) error {
	l.Status = domain.ListingExpired

	err := s.listings.Update(tx, l)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}

	if m.Status.Terminal() {
		return nil
	}

	err = s.expireLocked(tx, m, now)
	if err != nil {
		return fmt.Errorf("expire machine: %w", err)
	}

	err = s.machines.Update(tx, m)
	if err != nil {
		return fmt.Errorf("update machine: %w", err)
	}

	return nil
}

// AutoCollectSweep collects every full box of machines with a hired collector
// and deducts the collector's salary from the owner in the same transaction.
func (s *Service) AutoCollectSweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	now := s.now()
	salaryPercent := s.econ.Economy(ctx).Collector.SalaryPercent

	var res SweepResult

	err := s.pageIDs(ctx, &res,
		func(after uuid.UUID) ([]uuid.UUID, error) {
			return s.machines.ListAutoCollect(ctx, s.batch, after)
		},
		func(id uuid.UUID) (bool, error) {
			done, err := s.autoCollect(ctx, id, now, salaryPercent)
			if err != nil {
				slog.ErrorContext(ctx, "auto collect", "machine_id", id, "error", err)
			}
			return done, err
		},
	)
	if err != nil {
		s.finishSweep(ctx, SweepAutoCollect, res, start)
		return res, fmt.Errorf("list auto collect machines: %w", err)
	}

	s.finishSweep(ctx, SweepAutoCollect, res, start)

	return res, nil
}

func (s *Service) autoCollect(ctx context.Context, id uuid.UUID, now time.Time, salaryPercent decimal.Decimal) (bool, error) {
	var (
		res    *CollectResult
		entry  *domain.LedgerEntry
		salary decimal.Decimal
		owner  uint64
	)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		m, err := s.machines.LockByID(tx, id)
		if err != nil {
			return fmt.Errorf("lock machine: %w", err)
		}

		if m.Status != domain.StatusActive || !m.AutoCollectEnabled {
			return nil
		}

		st := accrual.Compute(m, now)
		if !st.CanCollect || !st.CoinBoxCurrent.IsPositive() {
			return nil
		}

		owner = m.OwnerID
		// one operation per checkpoint, so a re-run of the same pass is a duplicate
		operationID := fmt.Sprintf("autocollect:%s:%d", m.ID, m.LastCalculatedAt.UnixMicro())

		res, entry, err = s.collectLocked(tx, m, now, operationID)
		if err != nil {
			return err
		}

		if entry == nil {
			return nil
		}

		salary = res.Credited.Mul(salaryPercent).Div(hundred)
		if !salary.IsPositive() {
			return nil
		}

		err = s.users.DecreaseBalance(tx, owner, salary)
		if err != nil {
			return fmt.Errorf("pay collector: %w", err)
		}

		e := newEntry(operationID+":salary", owner, m.ID, domain.EntryCollectorSalary, salary, noBreakdown, now)
		e.TaxRate = salaryPercent.Div(hundred)
		e.Metadata["collected"] = res.Credited.String()

		err = s.ledger.Insert(tx, e)
		if err != nil {
			return fmt.Errorf("insert salary entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	if entry == nil {
		return false, nil
	}

	s.afterCommit(ctx, notify.Event{
		Type:      notify.EventAutoCollected,
		UserID:    owner,
		MachineID: id,
		Data: map[string]any{
			"credited": res.Credited.String(),
			"salary":   salary.String(),
		},
		At: now,
	}, entry, true)

	return true, nil
}

func (s *Service) finishSweep(ctx context.Context, kind string, res SweepResult, start time.Time) {
	finished := time.Now()

	metrics.ObserveSweep(kind, res.Succeeded, res.Failed, finished.Sub(start))

	err := s.recorder.RecordSweep(&recorder.SweepRun{
		Kind:       kind,
		Scanned:    res.Scanned,
		Succeeded:  res.Succeeded,
		Failed:     res.Failed,
		StartedAt:  start,
		FinishedAt: finished,
	})
	if err != nil {
		slog.WarnContext(ctx, "journal sweep", "sweep", kind, "error", err)
	}

	slog.InfoContext(ctx, "sweep finished",
		"sweep", kind,
		"scanned", res.Scanned,
		"succeeded", res.Succeeded,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration", finished.Sub(start),
	)
}
