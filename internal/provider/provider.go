package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/notifyhub/jobqueue/internal/domain"
)

// DeliverRequest is the JSON body posted to the external endpoint.
type DeliverRequest struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// DeliverResponse maps an optional JSON acknowledgement. Endpoints that
// answer with an empty body yield a zero value.
type DeliverResponse struct {
	StatusCode int    `json:"-"`
	MessageID  string `json:"messageId,omitempty"`
	Status     string `json:"status,omitempty"`
}

// StatusError reports a non-2xx answer from the endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected provider status: %d", e.StatusCode)
}

// Provider abstracts delivery of a task to an external service.
// Mocking this interface in tests gives full control over provider behaviour
// without making real HTTP calls.
type Provider interface {
	Deliver(ctx context.Context, task domain.Task) (*DeliverResponse, error)
}
