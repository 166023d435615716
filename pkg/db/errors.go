package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// RollbackError is returned by WithTx when fn failed and the rollback failed too.
type RollbackError struct {
	Cause    error
	Rollback error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%v (rollback failed: %v)", e.Cause, e.Rollback)
}

func (e *RollbackError) Unwrap() error {
	return e.Cause
}

// IsRollbackFailure reports whether err carries a failed rollback.
func IsRollbackFailure(err error) bool {
	var rb *RollbackError
	return errors.As(err, &rb)
}

// IsUniqueViolation reports whether err is a unique constraint failure on
// postgres or sqlite. When constraintName is set it must appear in the message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode &&
			(constraintName == "" || pgErr.ConstraintName == constraintName)
	}
	msg := err.Error()
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
