package llmclient

import "errors"

var (
	// ErrBackendUnavailable is returned after the retry budget for a backend
	// call is exhausted.
	ErrBackendUnavailable = errors.New("llm backend unavailable")

	// ErrMalformedResponse indicates the backend answered but the payload did
	// not match the expected shape (e.g. embedding count mismatch).
	ErrMalformedResponse = errors.New("malformed backend response")

	// ErrEmptyResponse indicates the backend returned no usable content.
	ErrEmptyResponse = errors.New("empty backend response")
)

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
