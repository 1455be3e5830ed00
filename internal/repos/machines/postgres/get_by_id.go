package machines

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/fastprodman/fortunefloor/internal/repos/machines"
	"github.com/google/uuid"
)

func (r *machinesRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Machine, error) {
	m, err := scanMachine(r.db.QueryRowContext(ctx, `
		SELECT `+machineColumns+`
		FROM machines
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, machines.ErrMachineNotFound
		}

		return nil, fmt.Errorf("get machine: %w", err)
	}

	return m, nil
}
