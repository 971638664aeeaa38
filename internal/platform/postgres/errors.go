package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"idbcrm/pkg/platform/sentinel"
)

// Postgres SQLSTATE codes the stores care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// Constraint returns the violated constraint name, if err is a Postgres error.
func Constraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool { return sqlState(err) == codeUniqueViolation }

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool { return sqlState(err) == codeForeignKeyViolation }

// TranslateError maps driver errors to store sentinels and wraps everything
// else with op for context. Both pgx and lib/pq error types are recognized.
func TranslateError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	case IsUniqueViolation(err):
		return fmt.Errorf("%s: %w (%s)", op, sentinel.ErrConflict, Constraint(err))
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w (%s)", op, sentinel.ErrConflict, Constraint(err))
	case sqlState(err) == codeCheckViolation:
		return fmt.Errorf("%s: %w (%s)", op, sentinel.ErrInvalidState, Constraint(err))
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
