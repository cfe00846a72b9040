package queue

import "time"

// Status mirrors which collection currently owns an item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRetry      Status = "retry"
)

// IsTerminal reports whether no further automatic transition can happen.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Item is one unit of work tracked by the queue.
// Data is handed verbatim to the job function; everything else is
// bookkeeping owned by the state store.
type Item[T any] struct {
	ID          string     `json:"id"`
	Data        T          `json:"data"`
	Status      Status     `json:"status"`
	Priority    int        `json:"priority"`
	AddedAt     time.Time  `json:"added_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	Attempt     int        `json:"attempt"`
	Error       string     `json:"error,omitempty"`
	Result      any        `json:"result,omitempty"`

	// seq breaks FIFO ties when two AddedAt values collide at clock resolution.
	seq uint64
}

// Clone returns a copy that shares no mutable state with the original.
// Data and Result are copied shallowly.
func (it *Item[T]) Clone() *Item[T] {
	if it == nil {
		return nil
	}
	c := *it
	c.StartedAt = cloneTime(it.StartedAt)
	c.CompletedAt = cloneTime(it.CompletedAt)
	c.FailedAt = cloneTime(it.FailedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Stats is a point-in-time snapshot of the queue.
type Stats struct {
	Pending            int           `json:"pending"`
	Processing         int           `json:"processing"`
	Completed          int           `json:"completed"`
	Failed             int           `json:"failed"`
	Retry              int           `json:"retry"`
	Total              int           `json:"total"`
	Delayed            int           `json:"delayed"`
	Paused             bool          `json:"paused"`
	AverageWaitTime    time.Duration `json:"average_wait_time"`
	AverageProcessTime time.Duration `json:"average_process_time"`
}
