package users

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/fortunefloor/internal/infra/pgtestutil"
	"github.com/fastprodman/fortunefloor/internal/repos/users"
)

func TestUsers_DecreaseBalance_Table(t *testing.T) {
	t.Parallel()

	type tc struct {
		name          string
		seed          func(db *sql.DB, t *testing.T)
		userID        uint64
		amount        string
		wantBalance   string
		wantErr       bool
		checkFinalBal bool
	}

	tests := []tc{
		{
			name:          "sufficient_funds_decrease_from_positive",
			seed:          func(db *sql.DB, t *testing.T) { upsertUser(t, db, 201, "10.00") },
			userID:        201,
			amount:        "2.5",
			wantBalance:   "7.5",
			checkFinalBal: true,
		},
		{
			name:          "sufficient_funds_exact_to_zero",
			seed:          func(db *sql.DB, t *testing.T) { upsertUser(t, db, 202, "3.000001") },
			userID:        202,
			amount:        "3.000001",
			wantBalance:   "0",
			checkFinalBal: true,
		},
		{
			name:          "insufficient_funds_balance_unchanged",
			seed:          func(db *sql.DB, t *testing.T) { upsertUser(t, db, 203, "2") },
			userID:        203,
			amount:        "3",
			wantBalance:   "2",
			wantErr:       true,
			checkFinalBal: true,
		},
		{
			name:   "user_missing_treated_as_insufficient",
			seed:   func(_ *sql.DB, _ *testing.T) {},
			userID: 999_999,
			amount: "1",
			// zero rows affected reads as insufficient funds
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			tt.seed(db, t)

			repo := New(db)

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("begin tx: %v", err)
			}
			defer func() { _ = tx.Rollback() }()

			err = repo.DecreaseBalance(tx, tt.userID, dec(tt.amount))

			if tt.wantErr {
				if !errors.Is(err, users.ErrInsufficientFunds) {
					t.Fatalf("expected ErrInsufficientFunds, got: %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("decrease balance: %v", err)
				}

				err = tx.Commit()
				if err != nil {
					t.Fatalf("commit: %v", err)
				}
			}

			if tt.checkFinalBal {
				got, gerr := repo.Get(ctx, tt.userID)
				if gerr != nil {
					t.Fatalf("get user after decrease: %v", gerr)
				}

				if !got.FortuneBalance.Equal(dec(tt.wantBalance)) {
					t.Fatalf("final balance mismatch: want %s, got %s", tt.wantBalance, got.FortuneBalance)
				}
			}
		})
	}
}

func TestUsers_DecreaseBalance_ConcurrentGuard(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	upsertUser(t, db, 1, "10")

	var wg sync.WaitGroup
	var mu sync.Mutex
	success, insufficient := 0, 0

	worker := func(name string) {
		defer wg.Done()

		tx, err := db.BeginTx(context.Background(), nil)
		if err != nil {
			t.Errorf("[%s] begin tx: %v", name, err)
			return
		}
		defer func() { _ = tx.Rollback() }()

		_, err = repo.LockAndGet(tx, 1)
		if err != nil {
			t.Errorf("[%s] lock user: %v", name, err)
			return
		}

		err = repo.DecreaseBalance(tx, 1, dec("10"))
		if err == nil {
			mu.Lock()
			success++
			mu.Unlock()

			err = tx.Commit()
			if err != nil {
				t.Errorf("[%s] commit: %v", name, err)
			}

			return
		}

		if errors.Is(err, users.ErrInsufficientFunds) {
			mu.Lock()
			insufficient++
			mu.Unlock()

			return
		}

		t.Errorf("[%s] unexpected error: %v", name, err)
	}

	wg.Add(2)
	go worker("A")
	go worker("B")
	wg.Wait()

	if success != 1 || insufficient != 1 {
		t.Fatalf("want 1 success and 1 insufficient, got success=%d insufficient=%d", success, insufficient)
	}
}
