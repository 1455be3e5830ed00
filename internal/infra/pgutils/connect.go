package pgutils

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

func OpenDB(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = db.PingContext(ctx)
	if err != nil {
		//nolint:errcheck
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
