package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/fastprodman/fortunefloor/internal/config"
	"github.com/fastprodman/fortunefloor/pkg/envconf"
	"github.com/joho/godotenv"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" default:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" default:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"15s"`

	// RateLimitRPS is the sustained mutation rate allowed per user. 0 disables the limiter.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" default:"10"`

	RunSweepsOnStart bool `env:"SWEEP_RUN_ON_START" default:"true"`

	Postgres  config.PostgresConfig
	Economy   config.EconomyConfig
	Scheduler config.SchedulerConfig
	Recorder  config.RecorderConfig
}

// readConfig loads an optional .env file, then the environment.
func readConfig() (*apiConfig, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := new(apiConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	return cfg, nil
}
