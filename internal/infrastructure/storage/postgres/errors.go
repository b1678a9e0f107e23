package postgres

import (
	"errors"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"paranoid/internal/core/apperror"
)

// SQLSTATE codes mapped to AppError.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeNotNullViolation    = "23502"
)

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err)
}

// MapWriteError converts integrity violations into ConstraintViolation.
// Other errors are returned unchanged.
func MapWriteError(entityName string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeForeignKeyViolation:
		return apperror.NewConstraintViolation(entityName, "reference does not resolve to an existing parent").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case codeUniqueViolation:
		return apperror.NewConstraintViolation(entityName, "duplicate key").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case codeNotNullViolation:
		return apperror.NewConstraintViolation(entityName, "required column is null").
			WithDetail("field", pgErr.ColumnName).
			WithCause(err)
	}
	return err
}
