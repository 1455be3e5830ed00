package listings

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/listings"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var cols = []string{
	"id", "machine_id", "seller_id", "tier", "wear_percent_at_listing",
	"commission_rate_at_listing", "expected_payout", "gamble_level_at_listing",
	"auto_collect_at_listing", "status", "buyer_id", "new_machine_id", "sold_at", "created_at",
	"coin_box_level_at_listing",
}

func listingRow(id, machineID uuid.UUID, status string, buyer, newID, soldAt driver.Value) []driver.Value {
	return []driver.Value{
		id.String(), machineID.String(), int64(11), int64(2), "35.5",
		"0.35", "6.5", int64(1),
		true, status, buyer, newID, soldAt, time.Now(),
		int64(2),
	}
}

func TestListings_LockFirstPending(t *testing.T) {
	t.Parallel()

	id, machineID := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{
			name: "head_of_queue",
			rows: sqlmock.NewRows(cols).AddRow(listingRow(id, machineID, "pending", nil, nil, nil)...),
		},
		{
			name:    "empty_queue",
			rows:    sqlmock.NewRows(cols),
			wantErr: listings.ErrListingNotFound,
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

			mock.ExpectBegin()
			mock.ExpectQuery("FROM auction_listings WHERE tier = \\$1 AND status = 'pending' ORDER BY created_at, id LIMIT 1 FOR UPDATE").
				WithArgs(int64(2)).
				WillReturnRows(tt.rows)
			mock.ExpectRollback()

			tx, err := db.Begin()
			if err != nil {
				t.Fatalf("begin: %v", err)
			}
			defer func() { _ = tx.Rollback() }()

			l, err := New(db).LockFirstPending(tx, 2)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, domain.ErrNotFound) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("lock first: %v", err)
			}

			if l.ID != id || l.MachineID != machineID || l.Status != domain.ListingPending {
				t.Fatalf("unexpected listing: %+v", l)
			}

			if l.BuyerID != nil || l.NewMachineID != nil || l.SoldAt != nil {
				t.Fatalf("pending listing must not carry sale fields: %+v", l)
			}

			if !l.AutoCollectAtListing || l.GambleLevelAtListing != 1 || l.CoinBoxLevelAtListing != 2 {
				t.Fatalf("upgrades not scanned: %+v", l)
			}
		})
	}
}

func TestListings_GetSold(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	id, machineID, newID := uuid.New(), uuid.New(), uuid.New()
	soldAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM auction_listings WHERE id = \\$1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(listingRow(id, machineID, "sold", int64(99), newID.String(), soldAt)...))

	l, err := New(db).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if l.BuyerID == nil || *l.BuyerID != 99 {
		t.Fatalf("buyer: %+v", l.BuyerID)
	}

	if l.NewMachineID == nil || *l.NewMachineID != newID {
		t.Fatalf("new machine: %+v", l.NewMachineID)
	}

	if l.SoldAt == nil || !l.SoldAt.Equal(soldAt) {
		t.Fatalf("sold at: %+v", l.SoldAt)
	}
}

func TestListings_InsertAlreadyListed(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO auction_listings").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "auction_listings_pending_machine_uq"})
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = New(db).Insert(tx, &domain.AuctionListing{
		ID:        uuid.New(),
		MachineID: uuid.New(),
		Status:    domain.ListingPending,
		CreatedAt: time.Now(),
	})
	if !errors.Is(err, listings.ErrAlreadyListed) || !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("want already listed, got %v", err)
	}
}

func TestListings_Position(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		count   int64
		want    int
		wantErr error
	}{
		{name: "third_in_line", count: 3, want: 3},
		{name: "not_pending", count: 0, wantErr: listings.ErrListingNotFound},
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

			mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM auction_listings q").
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.count))

			pos, err := New(db).Position(context.Background(), uuid.New())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil || pos != tt.want {
				t.Fatalf("position: want %d, got %d (%v)", tt.want, pos, err)
			}
		})
	}
}
