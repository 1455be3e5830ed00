package fundsources

import (
	"database/sql"

	"github.com/fastprodman/fortunefloor/internal/repos/fundsources"
)

var _ fundsources.FundSources = (*fundSourcesRepo)(nil)

type fundSourcesRepo struct{ db *sql.DB }

func New(db *sql.DB) *fundSourcesRepo {
	return &fundSourcesRepo{db: db}
}
