package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code raised when a unique constraint
// is violated. Repositories translate it into domain.ErrConflict so that
// races (duplicate slugs, concurrent version assignment) surface as retryable
// conflicts rather than opaque driver errors.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
