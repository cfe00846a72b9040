package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict: task id already in use")
	ErrInvalidID      = errors.New("id must be at most 128 characters")
	ErrInvalidTopic   = errors.New("topic must be between 1 and 128 characters")
	ErrInvalidPayload = errors.New("payload must be valid JSON of at most 64KiB")
	ErrBatchTooLarge  = errors.New("batch exceeds maximum of 1000 tasks")
	ErrBatchEmpty     = errors.New("batch must contain at least one task")
)
