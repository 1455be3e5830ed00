package machines

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/machines"
	"github.com/google/uuid"
)

func (r *machinesRepo) LockByID(tx *sql.Tx, id uuid.UUID) (*domain.Machine, error) {
	m, err := scanMachine(tx.QueryRow(`
		SELECT `+machineColumns+`
		FROM machines
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, machines.ErrMachineNotFound
		}

		return nil, fmt.Errorf("lock machine: %w", err)
	}

	return m, nil
}
