package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts the column from a unique violation detail. Handles plain columns,
// "Key (email)=(...)", and expression indexes, "Key (lower(email))=(...)".
var reKeyField = regexp.MustCompile(`Key \((?:[A-Za-z_]+\()?([A-Za-z_]+)`)

// checkMessages holds user-facing text for named CHECK constraints.
var checkMessages = map[string]struct{ field, message string }{
	"profiles_station_matches_role": {"station_id", "Station roles require a station; citizens must not have one."},
	"profiles_role_check":           {"role", "Role must be citizen, station_admin or official."},
}

// uniqueFields names the column behind unique indexes whose detail is not parseable.
var uniqueFields = map[string]string{
	"accounts_email_lower_key": "email",
	"accounts_pkey":            "id",
	"profiles_pkey":            "id",
}

// MapDBError maps database errors to AppError instances:
//   - sql.ErrNoRows / pgx.ErrNoRows → NotFound
//   - unique violations → Conflict
//   - check and NOT NULL violations → Validation
//   - context timeouts/cancellations → Timeout/Canceled
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "Request timed out. Please try again.")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, pgx.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "Resource not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

// IsUniqueViolation reports whether err is a Postgres unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "This value already exists. Please choose a different one.",
			Field:   uniqueField(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.CheckViolation:
		if known, ok := checkMessages[pgErr.ConstraintName]; ok {
			return &AppError{Code: ErrCodeValidation, Message: known.message, Field: known.field, Cause: pgErr}
		}
		return &AppError{Code: ErrCodeValidation, Message: "Invalid data. Please check your input.", Field: pgErr.ColumnName, Cause: pgErr}
	case pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field is required.", Field: pgErr.ColumnName, Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "A database error occurred. Please try again.", Cause: pgErr}
	}
}

func uniqueField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return uniqueFields[pgErr.ConstraintName]
}
