package machines

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/machines"
)

func (r *machinesRepo) Update(tx *sql.Tx, m *domain.Machine) error {
	res, err := tx.Exec(`
		UPDATE machines
		SET coin_box_current      = $2,
		    accumulated_income    = $3,
		    last_calculated_at    = $4,
		    profit_paid_out       = $5,
		    principal_paid_out    = $6,
		    auto_collect_enabled  = $7,
		    auto_collect_hired_at = $8,
		    gamble_level          = $9,
		    overclock_multiplier  = $10,
		    status                = $11,
		    updated_at            = $12,
		    coin_box_capacity     = $13,
		    coin_box_level        = $14
		WHERE id = $1
	`,
		m.ID, m.CoinBoxCurrent, m.AccumulatedIncome, m.LastCalculatedAt, m.ProfitPaidOut,
		m.PrincipalPaidOut, m.AutoCollectEnabled, m.AutoCollectHiredAt, m.GambleLevel,
		m.OverclockMultiplier, string(m.Status), m.UpdatedAt, m.CoinBoxCapacity, m.CoinBoxLevel,
	)
	if err != nil {
		return fmt.Errorf("update machine: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return machines.ErrMachineNotFound
	}

	return nil
}
