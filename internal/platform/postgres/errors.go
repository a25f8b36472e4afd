package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/grind-api/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// connectionFailureClass is the prefix of PostgreSQL connection error codes (class 08)
	connectionFailureClass = "08"
)

// MapError maps a database error to the appropriate store sentinel.
// It wraps the original error to preserve context for debugging.
// All store operations route their errors through this function so
// callers can rely on errors.Is against the store package sentinels.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == checkViolationCode:
			return fmt.Errorf(
				"%w: check constraint violation (%s): %v",
				store.ErrUpdateFailed,
				pgErr.ConstraintName,
				err,
			)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == connectionFailureClass:
			return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
		}
	}

	return err
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique
// constraint violation. Task IDs are random 128-bit values, so this
// signals an ID collision rather than an expected conflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
