package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by the fetch layer.
var (
	// ErrRetryExhausted is wrapped into the final error when all retry
	// attempts are used up.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// Class classifies an upstream failure for retry and propagation decisions.
type Class string

const (
	// ClassTransient marks connection failures and timeouts. Eligible for
	// retry.
	ClassTransient Class = "transient"

	// ClassCancelled marks calls abandoned by the caller. Never retried.
	ClassCancelled Class = "cancelled"

	// ClassFatal marks unexpected or malformed upstream data and logic
	// errors. Retrying cannot help; never retried.
	ClassFatal Class = "fatal"

	// ClassPassThrough marks already-classified, caller-facing errors
	// produced upstream (e.g. "not found"). Propagated verbatim, never
	// retried, never reclassified.
	ClassPassThrough Class = "pass_through"
)

// Error is a classified upstream error.
type Error struct {
	Class   Class
	Status  int // caller-facing status for pass-through errors
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Transient builds a retryable error.
func Transient(msg string, err error) *Error {
	return &Error{Class: ClassTransient, Message: msg, Err: err}
}

// Cancelled builds a cancellation error.
func Cancelled(msg string, err error) *Error {
	return &Error{Class: ClassCancelled, Message: msg, Err: err}
}

// Fatal builds a non-retryable internal error.
func Fatal(msg string, err error) *Error {
	return &Error{Class: ClassFatal, Message: msg, Err: err}
}

// PassThrough builds a caller-facing error that must reach the caller
// unchanged, carrying its own status.
func PassThrough(status int, msg string) *Error {
	return &Error{Class: ClassPassThrough, Status: status, Message: msg}
}

// ClassOf returns the classification of err. Unclassified errors map to
// context cancellation, deadline expiry, or fatal, in that order.
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	if errors.Is(err, context.Canceled) {
		return ClassCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	return ClassFatal
}

// StatusOf returns the caller-facing status carried by a pass-through
// error, or 0 when err carries none.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(class Class) bool {
	switch class {
	case ClassTransient:
		// Connection failures and timeouts may clear up.
		return true
	case ClassCancelled:
		// The caller withdrew; nobody is waiting for a retry.
		return false
	case ClassPassThrough:
		// A classified domain answer, not an outage.
		return false
	case ClassFatal:
		// Retrying cannot fix a data or logic problem.
		return false
	default:
		return false
	}
}
