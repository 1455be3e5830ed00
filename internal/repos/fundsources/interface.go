package fundsources

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/domain"
	"github.com/google/uuid"
)

var ErrFundSourceNotFound = fmt.Errorf("fund source %w", domain.ErrNotFound)

type FundSources interface {
	Insert(tx *sql.Tx, fs *domain.FundSource) error
	GetByMachine(tx *sql.Tx, machineID uuid.UUID) (*domain.FundSource, error)
}
