// Package errors provides error types and utilities for corpusx.
// It extends the standard errors package with additional context and wrapping capabilities.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the provisioning failure taxonomy
var (
	// ErrNetwork indicates a transient transfer failure (unreachable host,
	// HTTP error status). Retried with backoff up to a cap, then surfaced.
	ErrNetwork = errors.New("network transfer failed")

	// ErrCorruptArchive indicates an archive failed integrity checks.
	// Not retried automatically; a re-fetch is required.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrDiskSpace indicates insufficient free space for extraction.
	// Fatal for the descriptor, surfaced immediately.
	ErrDiskSpace = errors.New("insufficient disk space")

	// ErrCollision indicates a name collision in the target tree.
	// Fatal unless force-merge is explicitly requested.
	ErrCollision = errors.New("target name collision")

	// ErrStateCorrupt indicates the persisted pipeline state is
	// unreadable or inconsistent and needs a manual reset.
	ErrStateCorrupt = errors.New("pipeline state corrupt")

	// ErrCanceled indicates the run was canceled before the operation
	// reached a safe checkpoint boundary.
	ErrCanceled = errors.New("operation canceled")
)

// wrappedError wraps an error with additional context
type wrappedError struct {
	msg   string
	cause error
}

// Error implements the error interface
func (e *wrappedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap returns the underlying error
func (e *wrappedError) Unwrap() error {
	return e.cause
}

// Wrap wraps an error with additional context message.
// If err is nil, Wrap returns nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg:   msg,
		cause: err,
	}
}

// Wrapf wraps an error with a formatted context message.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type.
// This is a convenience wrapper around errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// New creates a new error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf formats according to a format specifier and returns the string as a value that satisfies error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Join returns an error that wraps the given errors.
// Any nil error values are discarded.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// IsNetwork reports whether the error is a transient network error
func IsNetwork(err error) bool {
	return Is(err, ErrNetwork)
}

// IsCorruptArchive reports whether the error is an archive integrity error
func IsCorruptArchive(err error) bool {
	return Is(err, ErrCorruptArchive)
}

// IsDiskSpace reports whether the error is a disk space error
func IsDiskSpace(err error) bool {
	return Is(err, ErrDiskSpace)
}

// IsCollision reports whether the error is a target collision error
func IsCollision(err error) bool {
	return Is(err, ErrCollision)
}

// IsStateCorrupt reports whether the error is a state corruption error
func IsStateCorrupt(err error) bool {
	return Is(err, ErrStateCorrupt)
}

// Retryable reports whether the descriptor chain may retry the failed
// operation within the same run. Only network errors qualify; archive
// corruption needs a re-fetch and the rest are fatal for the descriptor.
func Retryable(err error) bool {
	return IsNetwork(err)
}
