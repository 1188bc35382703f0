package analysis

import "errors"

var (
	// ErrInvalidInput rejects calls with nothing to analyze. No backend call
	// is attempted.
	ErrInvalidInput = errors.New("analysis: invalid input")

	// ErrInvalidConfig rejects malformed configuration before any backend
	// call.
	ErrInvalidConfig = errors.New("analysis: invalid config")

	// ErrCancelled is returned when the caller's context is done before the
	// analysis completes. No partial result is returned.
	ErrCancelled = errors.New("analysis: cancelled")
)
