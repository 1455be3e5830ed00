package machines

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
)

func (r *machinesRepo) Insert(tx *sql.Tx, m *domain.Machine) error {
	_, err := tx.Exec(`
		INSERT INTO machines (`+machineColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`,
		m.ID, m.OwnerID, m.Tier, m.PurchasePrice, m.TotalYield, m.ProfitAmount, m.LifespanDays,
		m.StartedAt, m.ExpiresAt, m.RatePerSecond, m.CoinBoxCapacity, m.CoinBoxCurrent,
		m.AccumulatedIncome, m.LastCalculatedAt, m.ProfitPaidOut, m.PrincipalPaidOut,
		m.ReinvestRound, m.ProfitReductionRate, m.AutoCollectEnabled, m.AutoCollectHiredAt,
		m.GambleLevel, m.OverclockMultiplier, string(m.Status), m.CreatedAt, m.UpdatedAt, m.CoinBoxLevel,
	)
	if err != nil {
		return fmt.Errorf("insert machine: %w", err)
	}

	return nil
}
