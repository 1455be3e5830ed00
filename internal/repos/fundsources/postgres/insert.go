package fundsources

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/lib/pq"
)

func (r *fundSourcesRepo) Insert(tx *sql.Tx, fs *domain.FundSource) error {
	ids := make([]string, 0, len(fs.SourceMachineIDs))
	for _, id := range fs.SourceMachineIDs {
		ids = append(ids, id.String())
	}

	_, err := tx.Exec(`
		INSERT INTO fund_sources (machine_id, fresh_deposit_amount, profit_derived_amount, source_machine_ids, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, fs.MachineID, fs.FreshDepositAmount, fs.ProfitDerivedAmount, pq.Array(ids), fs.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fund source: %w", err)
	}

	return nil
}
