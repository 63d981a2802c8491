package transform

import (
	"errors"
	"fmt"
)

// Errors returned by the transaction engine.
var (
	// ErrTransaction is matched by every TransactionError.
	ErrTransaction = errors.New("transform: transaction rejected")

	// ErrVersionMismatch is wrapped by VersionMismatchError.
	ErrVersionMismatch = errors.New("transform: version mismatch")

	// ErrNotInvertible indicates a step cannot compute its inverse.
	ErrNotInvertible = errors.New("transform: step not invertible")
)

// TransactionError reports a transaction that could not be committed.
// Step is the index of the failing step, or -1 when the final document
// failed validation.
type TransactionError struct {
	Step int
	Kind string
	Err  error
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("transform: transaction rejected: %v", e.Err)
	}
	return fmt.Sprintf("transform: step %d (%s) failed: %v", e.Step, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransaction.
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransaction
}

// VersionMismatchError reports a transaction computed against a different
// document version than the one it is applied or composed with.
type VersionMismatchError struct {
	Expected uint64
	Got      uint64
}

// Error implements the error interface.
func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("transform: version mismatch: expected base %d, got %d", e.Expected, e.Got)
}

// Unwrap returns ErrVersionMismatch.
func (e *VersionMismatchError) Unwrap() error {
	return ErrVersionMismatch
}
