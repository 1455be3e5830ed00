package users

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func upsertUser(t *testing.T, db *sql.DB, id uint64, balance string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO users (id, fortune_balance) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET fortune_balance = EXCLUDED.fortune_balance
	`, id, balance)
	if err != nil {
		t.Fatalf("seed upsert user(%d): %v", id, err)
	}
}
