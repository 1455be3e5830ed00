package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder appends journal rows to a SQLite file.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the journal and its tables.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// readers (dashboards, ad-hoc queries) must not block the writer
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		//nolint:errcheck
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}

	err = r.migrate()
	if err != nil {
		//nolint:errcheck
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite recorder opened", "path", path)

	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS operations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			operation_id TEXT NOT NULL,
			kind         TEXT NOT NULL,
			user_id      INTEGER NOT NULL,
			machine_id   TEXT,
			amount       TEXT NOT NULL,
			details      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_ts ON operations(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_user ON operations(user_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS sweep_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			kind        TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			scanned     INTEGER NOT NULL,
			succeeded   INTEGER NOT NULL,
			failed      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sweep_runs_ts ON sweep_runs(started_at)`,
	}

	for _, s := range stmts {
		_, err := r.db.Exec(s)
		if err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}

	return nil
}

func (r *SQLiteRecorder) RecordOperation(op *Operation) error {
	details, err := json.Marshal(op.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(`
		INSERT INTO operations (timestamp, operation_id, kind, user_id, machine_id, amount, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, op.At.UnixMicro(), op.OperationID, op.Kind, int64(op.UserID), op.MachineID.String(),
		op.Amount.String(), string(details))
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}

	return nil
}

func (r *SQLiteRecorder) RecordSweep(run *SweepRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`
		INSERT INTO sweep_runs (kind, started_at, finished_at, scanned, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.Kind, run.StartedAt.UnixMicro(), run.FinishedAt.UnixMicro(), run.Scanned, run.Succeeded, run.Failed)
	if err != nil {
		return fmt.Errorf("insert sweep run: %w", err)
	}

	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.Close()
	if err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}
