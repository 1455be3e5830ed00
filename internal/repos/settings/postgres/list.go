package settings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/fortunefloor/internal/repos/settings"
)

var _ settings.Settings = (*settingsRepo)(nil)

type settingsRepo struct{ db *sql.DB }

func New(db *sql.DB) *settingsRepo {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) List(ctx context.Context) ([]settings.Override, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, value, updated_at
		FROM system_settings
		ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]settings.Override, 0)

	for rows.Next() {
		var o settings.Override

		err = rows.Scan(&o.Key, &o.Value, &o.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}

		out = append(out, o)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}

	return out, nil
}
