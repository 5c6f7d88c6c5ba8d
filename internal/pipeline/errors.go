package pipeline

import (
	"context"
	"errors"
)

// classifiedError carries an explicit retry classification.
type classifiedError struct {
	err       error
	transient bool
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, transient: true}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, transient: false}
}

// IsTransient reports whether a retry of the failed operation may succeed.
// Explicit classification wins; otherwise errors exposing Temporary() are
// consulted. Unclassified failures default to transient so a flaky backend
// still gets its retry budget.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.transient
	}
	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) {
		return temporary.Temporary()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return true
}
