package repo

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Errors returned by every Store implementation.
var (
	ErrNotFound    = errors.New("account not found")
	ErrDuplicate   = errors.New("account already exists")
	ErrUnavailable = errors.New("account store unavailable")
)

const uniqueViolation = "23505"

// isUniqueViolation detects a unique constraint violation from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// mapError translates driver errors into the store contract errors.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
}
