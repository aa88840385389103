package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// isUniqueViolation reports whether err violates the named unique constraint
func isUniqueViolation(err error, constraint string) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}

// isForeignKeyViolation reports whether err violates the named foreign key
func isForeignKeyViolation(err error, constraint string) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == pgForeignKeyViolation && pgErr.ConstraintName == constraint
}

func isCheckViolation(err error, constraint string) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == pgCheckViolation && pgErr.ConstraintName == constraint
}
