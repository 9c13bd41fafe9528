package store

import (
	"errors"
	"fmt"

	"AthleteAPI/internal/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrUnknownRelation = errors.New("unknown relation")

// mapError classifies driver errors into apperr kinds.
func mapError(entity string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, nil)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return apperr.Conflict("Record already exists", err)
		case "23503": // foreign_key_violation
			return apperr.Conflict("Related record is missing or still referenced", err)
		case "23502", "23514": // not_null_violation, check_violation
			return apperr.Validation(pgErr.Message, map[string]any{"column": pgErr.ColumnName, "constraint": pgErr.ConstraintName})
		case "42703", "42P01", "22P02", "22007", "22008":
			// undefined column/table, malformed literals
			return apperr.BadRequest(fmt.Errorf("%s", pgErr.Message))
		}
	}
	return apperr.Store(fmt.Errorf("%s: %w", entity, err))
}

// withID attaches the looked up id to a not-found error.
func withID(err error, entity string, id any) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}
