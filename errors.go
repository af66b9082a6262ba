package dbkit

import (
	"errors"
	"fmt"
)

// Common error kinds surfaced by the query template and transaction manager.
// Callers should test for them with errors.Is; the original driver failure
// remains reachable through the error chain.
var (
	// ErrNotFound is returned by QueryOne when the result set is empty.
	// It signals an expected absence, not a driver fault.
	ErrNotFound = errors.New("no matching row")

	// ErrDataAccess covers any driver-level failure during statement
	// preparation, binding, or execution.
	ErrDataAccess = errors.New("data access failed")

	// ErrTxRollback is returned when a unit of work fails and the
	// transaction was rolled back. No partial writes from the unit of work
	// are visible.
	ErrTxRollback = errors.New("transaction rolled back")

	// ErrRollbackFailed is returned when the rollback attempt itself fails
	// at the driver level. The consistency state of the data can no longer
	// be guaranteed; callers should treat this as fatal and not retry.
	ErrRollbackFailed = errors.New("transaction rollback failed")

	// ErrDuplicate is returned when an operation would violate a unique
	// constraint. Produced by driver-specific error translation such as
	// postgres.MapError, never by the template itself.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrInvalidEntity is returned when an operation violates a foreign
	// key, check, or not-null constraint.
	ErrInvalidEntity = errors.New("invalid entity")
)

// DataAccessError wraps a driver-level failure with the statement that
// triggered it. It matches ErrDataAccess under errors.Is, and the driver
// error remains reachable via Unwrap.
type DataAccessError struct {
	Query string // statement text, empty for connection-level failures
	Err   error  // original driver failure
}

// Error implements the error interface for DataAccessError.
func (e *DataAccessError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("data access failed for %q: %v", e.Query, e.Err)
	}
	return fmt.Sprintf("data access failed: %v", e.Err)
}

// Unwrap returns the original driver failure.
func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the ErrDataAccess kind.
func (e *DataAccessError) Is(target error) bool {
	return target == ErrDataAccess
}

// TxError reports the outcome of a failed transaction. Kind is either
// ErrTxRollback (the unit of work failed and was rolled back; Err is the
// unit-of-work failure) or ErrRollbackFailed (the rollback itself failed;
// Err is the rollback failure, superseding the original cause).
type TxError struct {
	Kind error
	Err  error
}

// Error implements the error interface for TxError.
func (e *TxError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

// Unwrap returns the reported cause.
func (e *TxError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's kind.
func (e *TxError) Is(target error) bool {
	return target == e.Kind
}
