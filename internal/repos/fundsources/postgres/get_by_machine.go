package fundsources

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/fundsources"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func (r *fundSourcesRepo) GetByMachine(tx *sql.Tx, machineID uuid.UUID) (*domain.FundSource, error) {
	var (
		fs  domain.FundSource
		ids pq.StringArray
	)

	err := tx.QueryRow(`
		SELECT machine_id, fresh_deposit_amount, profit_derived_amount, source_machine_ids, created_at
		FROM fund_sources
		WHERE machine_id = $1
	`, machineID).Scan(&fs.MachineID, &fs.FreshDepositAmount, &fs.ProfitDerivedAmount, &ids, &fs.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fundsources.ErrFundSourceNotFound
		}

		return nil, fmt.Errorf("get fund source: %w", err)
	}

	fs.SourceMachineIDs = make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, perr := uuid.Parse(raw)
		if perr != nil {
			return nil, fmt.Errorf("parse source machine id %q: %w", raw, perr)
		}

		fs.SourceMachineIDs = append(fs.SourceMachineIDs, id)
	}

	return &fs, nil
}
