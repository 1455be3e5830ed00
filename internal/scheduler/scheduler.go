// Package scheduler runs the lifecycle sweeps and cache refreshes on cron
// schedules (with a seconds field).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fastprodman/fortunefloor/internal/config"
	"github.com/fastprodman/fortunefloor/internal/services/machines"
	"github.com/robfig/cron/v3"
)

// Sweeper is the part of machines.Service the scheduler drives.
type Sweeper interface {
	ExpireSweep(ctx context.Context) (machines.SweepResult, error)
	AutoCollectSweep(ctx context.Context) (machines.SweepResult, error)
}

// Refresher reloads a cached read model (tier catalog, economy settings).
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	sweeper    Sweeper
	refreshers []Refresher
}

// New builds a stopped scheduler. ctx bounds every job it runs.
func New(ctx context.Context, sw Sweeper, refreshers ...Refresher) *Scheduler {
	logger := cronLogger{}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:        ctx,
		sweeper:    sw,
		refreshers: refreshers,
	}
}

// RegisterAll adds the expire, auto-collect and refresh jobs. An empty spec
// disables that job.
func (s *Scheduler) RegisterAll(cfg config.SchedulerConfig) error {
	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{name: machines.SweepExpire, spec: cfg.ExpireSpec, fn: s.expire},
		{name: machines.SweepAutoCollect, spec: cfg.AutoCollectSpec, fn: s.autoCollect},
		{name: "refresh", spec: cfg.RefreshSpec, fn: s.refresh},
	}

	for _, j := range jobs {
		if j.spec == "" {
			slog.Info("scheduler job disabled", "job", j.name)
			continue
		}

		_, err := s.cron.AddFunc(j.spec, j.fn)
		if err != nil {
			return fmt.Errorf("register %s job: %w", j.name, err)
		}
	}

	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", s.Jobs())
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		slog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// RunNow runs every job once, synchronously. Used on start and in tests.
func (s *Scheduler) RunNow() {
	s.refresh()
	s.expire()
	s.autoCollect()
}

func (s *Scheduler) expire() {
	_, err := s.sweeper.ExpireSweep(s.ctx)
	if err != nil {
		slog.Error("expire sweep", "error", err)
	}
}

func (s *Scheduler) autoCollect() {
	_, err := s.sweeper.AutoCollectSweep(s.ctx)
	if err != nil {
		slog.Error("auto-collect sweep", "error", err)
	}
}

func (s *Scheduler) refresh() {
	for _, r := range s.refreshers {
		err := r.Refresh(s.ctx)
		if err != nil {
			slog.Warn("refresh cache", "error", err)
		}
	}
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
