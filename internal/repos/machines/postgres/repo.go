package machines

import (
	"database/sql"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/machines"
	"github.com/google/uuid"
)

var _ machines.Machines = (*machinesRepo)(nil)

type machinesRepo struct{ db *sql.DB }

func New(db *sql.DB) *machinesRepo {
	return &machinesRepo{db: db}
}

const machineColumns = `id, owner_id, tier, purchase_price, total_yield, profit_amount, lifespan_days,
		started_at, expires_at, rate_per_second, coin_box_capacity, coin_box_current,
		accumulated_income, last_calculated_at, profit_paid_out, principal_paid_out,
		reinvest_round, profit_reduction_rate, auto_collect_enabled, auto_collect_hired_at,
		gamble_level, overclock_multiplier, status, created_at, updated_at, coin_box_level`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMachine(row rowScanner) (*domain.Machine, error) {
	var (
		m        domain.Machine
		hiredAt  sql.NullTime
		statusDB string
	)

	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Tier, &m.PurchasePrice, &m.TotalYield, &m.ProfitAmount, &m.LifespanDays,
		&m.StartedAt, &m.ExpiresAt, &m.RatePerSecond, &m.CoinBoxCapacity, &m.CoinBoxCurrent,
		&m.AccumulatedIncome, &m.LastCalculatedAt, &m.ProfitPaidOut, &m.PrincipalPaidOut,
		&m.ReinvestRound, &m.ProfitReductionRate, &m.AutoCollectEnabled, &hiredAt,
		&m.GambleLevel, &m.OverclockMultiplier, &statusDB, &m.CreatedAt, &m.UpdatedAt, &m.CoinBoxLevel,
	)
	if err != nil {
		return nil, err
	}

	m.Status = domain.Status(statusDB)
	m.StartedAt = m.StartedAt.UTC()
	m.ExpiresAt = m.ExpiresAt.UTC()
	m.LastCalculatedAt = m.LastCalculatedAt.UTC()

	if hiredAt.Valid {
		t := hiredAt.Time.UTC()
		m.AutoCollectHiredAt = &t
	}

	return &m, nil
}

func scanIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		err := rows.Scan(&id)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	err := rows.Err()
	if err != nil {
		return nil, err
	}

	return ids, nil
}
