package pgutils

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const codeUniqueViolation = "23505"

// IsUniqueViolation reports whether err carries a postgres unique_violation,
// optionally limited to the named constraints.
func IsUniqueViolation(err error, constraints ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}

	if len(constraints) == 0 {
		return true
	}

	for _, c := range constraints {
		if pgErr.ConstraintName == c {
			return true
		}
	}

	return false
}
