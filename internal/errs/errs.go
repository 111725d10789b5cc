// Package errs defines the error taxonomy shared by stores, processors and
// the lifecycle controller. ValidationError and StateError are caller
// visible and non-retryable: the caller must change its input or state
// before trying again. Storage failures are fatal to the in-flight
// operation and carry the driver error unwrapped underneath.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a lookup that matched nothing. Stores wrap it with
// the record kind and id.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or malformed required argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StateError reports an operation invoked in a state that forbids it, e.g.
// recording a message while asleep.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// IsState reports whether err is (or wraps) a StateError.
func IsState(err error) bool {
	var s *StateError
	return errors.As(err, &s)
}

// StorageError wraps an underlying read/write failure from the embedded
// store. No automatic retry is attempted anywhere.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError, passing nil through.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
