package domain

import (
	"encoding/json"
	"time"
)

const (
	MaxTopicLength   = 128
	MaxIDLength      = 128
	MaxPayloadBytes  = 64 << 10
	MaxBatchSize     = 1000
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Task is the unit of work carried by the queue: an opaque JSON payload
// delivered to the webhook provider under a topic.
type Task struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// OutcomeStatus is the terminal result recorded for a task.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
)

func (s OutcomeStatus) IsValid() bool {
	switch s {
	case OutcomeCompleted, OutcomeFailed:
		return true
	}
	return false
}

// Outcome is the audit record written once a task reaches a terminal state.
type Outcome struct {
	TaskID     string        `json:"task_id"`
	Topic      string        `json:"topic"`
	Priority   int           `json:"priority"`
	Status     OutcomeStatus `json:"status"`
	Attempts   int           `json:"attempts"`
	Error      string        `json:"error,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	AddedAt    time.Time     `json:"added_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// SubmitTaskRequest is the inbound payload for a single task. An empty ID
// lets the service generate one.
type SubmitTaskRequest struct {
	ID       string          `json:"id,omitempty"`
	Topic    string          `json:"topic"`
	Payload  json.RawMessage `json:"payload"`
	Priority int             `json:"priority"`
}

func (r *SubmitTaskRequest) Validate() error {
	if len(r.ID) > MaxIDLength {
		return ErrInvalidID
	}
	if r.Topic == "" || len(r.Topic) > MaxTopicLength {
		return ErrInvalidTopic
	}
	if len(r.Payload) > MaxPayloadBytes {
		return ErrInvalidPayload
	}
	if len(r.Payload) > 0 && !json.Valid(r.Payload) {
		return ErrInvalidPayload
	}
	return nil
}

// Task returns the queue payload described by the request under id.
func (r *SubmitTaskRequest) Task(id string) Task {
	payload := r.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Task{ID: id, Topic: r.Topic, Payload: payload}
}

// SubmitBatchRequest wraps a slice of task requests.
type SubmitBatchRequest struct {
	Tasks []SubmitTaskRequest `json:"tasks"`
}

// ListFilter holds query parameters for paginated outcome listing.
type ListFilter struct {
	Status *OutcomeStatus
	Topic  *string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

// QueueStats is the API view of a queue stats snapshot, with averages in
// milliseconds.
type QueueStats struct {
	Pending          int     `json:"pending"`
	Processing       int     `json:"processing"`
	Completed        int     `json:"completed"`
	Failed           int     `json:"failed"`
	Retry            int     `json:"retry"`
	Delayed          int     `json:"delayed"`
	Total            int     `json:"total"`
	Paused           bool    `json:"paused"`
	AverageWaitMS    float64 `json:"average_wait_ms"`
	AverageProcessMS float64 `json:"average_process_ms"`
}
