package queue

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateID = errors.New("item id is already tracked by the queue")
	ErrEmptyID     = errors.New("item id must not be empty")
)

// RetryError reports a transient failure: the item goes back to pending
// once Delay has elapsed.
type RetryError struct {
	Attempt int
	Delay   time.Duration
	Err     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("attempt %d failed, retrying in %s: %v", e.Attempt+1, e.Delay, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// FinalError reports a failure after all retries were used up.
type FinalError struct {
	Attempts int
	Err      error
}

func (e *FinalError) Error() string {
	return fmt.Sprintf("failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *FinalError) Unwrap() error { return e.Err }
