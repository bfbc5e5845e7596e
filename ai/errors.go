package ai

import "errors"

var (
	// ErrEmbedding wraps every embedding provider failure. Callers decide
	// per call whether to skip-and-log or abort; errors.Is against this
	// sentinel identifies the failure class, errors.Unwrap reaches the
	// provider's cause.
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmptyInput is returned before any provider call when the text to
	// embed is empty. It is never retried.
	ErrEmptyInput = errors.New("cannot embed empty text")

	// ErrInvalidMaxAttempts is returned when a retry policy is configured
	// with a non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
