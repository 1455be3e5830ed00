package pgutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestWithTx(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		fnErr   error
		expect  func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "commit_on_success",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name:  "rollback_on_fn_error",
			fnErr: errBoom,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectRollback()
			},
			wantErr: errBoom,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock: %v", err)
			}
			defer db.Close()

			tt.expect(mock)

			err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
				_, execErr := tx.Exec("UPDATE users SET fortune_balance = 0")
				if execErr != nil {
					return execErr
				}

				return tt.fnErr
			})

			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}

			err = mock.ExpectationsWereMet()
			if err != nil {
				t.Fatalf("expectations: %v", err)
			}
		})
	}
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	func() {
		defer func() {
			if p := recover(); p != "half way" {
				t.Fatalf("want the original panic, got %v", p)
			}
		}()

		//nolint:errcheck
		WithTx(context.Background(), db, func(*sql.Tx) error {
			panic("half way")
		})
	}()

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "ledger_entries_operation_uq"}

	tests := []struct {
		name        string
		err         error
		constraints []string
		want        bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain_error", err: errors.New("x"), want: false},
		{name: "wrapped_any_constraint", err: fmt.Errorf("insert: %w", dup), want: true},
		{name: "matching_constraint", err: dup, constraints: []string{"ledger_entries_operation_uq"}, want: true},
		{name: "other_constraint", err: dup, constraints: []string{"users_pkey"}, want: false},
		{name: "fk_violation", err: &pgconn.PgError{Code: "23503"}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := IsUniqueViolation(tt.err, tt.constraints...)
			if got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}
