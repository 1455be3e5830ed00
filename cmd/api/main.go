package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/fortunefloor/internal/api"
	"github.com/fastprodman/fortunefloor/internal/infra/logging"
	"github.com/fastprodman/fortunefloor/internal/infra/pgutils"
	"github.com/fastprodman/fortunefloor/internal/notify"
	"github.com/fastprodman/fortunefloor/internal/recorder"
	pgsettings "github.com/fastprodman/fortunefloor/internal/repos/settings/postgres"
	pgtiers "github.com/fastprodman/fortunefloor/internal/repos/tiers/postgres"
	"github.com/fastprodman/fortunefloor/internal/scheduler"
	"github.com/fastprodman/fortunefloor/internal/services/balance"
	"github.com/fastprodman/fortunefloor/internal/services/machines"
	"github.com/fastprodman/fortunefloor/internal/settings"
	"github.com/fastprodman/fortunefloor/internal/tiers"
	"github.com/fastprodman/fortunefloor/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg, err := readConfig()
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	shutdown := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdown.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdown.AddNamed("postgres", func(context.Context) error {
		return dbConns.Close()
	})

	rec, err := openRecorder(cfg.Recorder.SQLitePath)
	if err != nil {
		return fmt.Errorf("open recorder: %w", err)
	}

	shutdown.AddNamed("recorder", func(context.Context) error {
		return rec.Close()
	})

	catalog := tiers.NewCatalog(pgtiers.New(dbConns), cfg.Economy.TiersTTL)

	econ, err := settings.NewProvider(pgsettings.New(dbConns), cfg.Economy.SettingsFile, cfg.Economy.SettingsTTL)
	if err != nil {
		return fmt.Errorf("init economy settings: %w", err)
	}

	hub := notify.NewHub()
	sink := notify.Multi{hub, notify.LogSink{Logger: slog.Default()}}

	// --- Services ---
	machineSrv := machines.NewPostgres(dbConns, catalog, econ, machines.Deps{
		Notifier:  sink,
		Recorder:  rec,
		BatchSize: cfg.Scheduler.BatchSize,
	})
	balanceSrv := balance.New(dbConns, sink)

	// --- Scheduler ---
	sched := scheduler.New(ctx, machineSrv, catalog, econ)

	err = sched.RegisterAll(cfg.Scheduler)
	if err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}

	if cfg.RunSweepsOnStart {
		sched.RunNow()
	}

	sched.Start()
	shutdown.AddNamed("scheduler", sched.Stop)

	// --- HTTP server ---
	var limiter *api.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	srv := api.NewServer(cfg.Port, api.NewHandler(machineSrv, balanceSrv, hub), limiter)

	// Register HTTP server graceful shutdown
	shutdown.AddNamed("http", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdown queue will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

func openRecorder(path string) (recorder.Recorder, error) {
	if path == "" {
		return recorder.NewNoopRecorder(), nil
	}

	r, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		return nil, err
	}

	slog.Info("audit journal enabled", "path", path)

	return r, nil
}
