package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/notifyhub/jobqueue/internal/domain"
)

// maxAckBytes bounds how much of an acknowledgement body is read.
const maxAckBytes = 64 << 10

// WebhookProvider delivers tasks by POSTing them to a single URL.
// The URL is injected from config so tests can point to a local server.
type WebhookProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewWebhookProvider(baseURL string, timeout time.Duration) *WebhookProvider {
	return &WebhookProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Deliver posts the task and accepts any 2xx answer. A JSON body, when
// present, is decoded into the response.
func (p *WebhookProvider) Deliver(ctx context.Context, task domain.Task) (*DeliverResponse, error) {
	body, err := json.Marshal(DeliverRequest{
		ID:      task.ID,
		Topic:   task.Topic,
		Payload: task.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Task-ID", task.ID)
	req.Header.Set("X-Task-Topic", task.Topic)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	ack := DeliverResponse{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAckBytes)).Decode(&ack); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	ack.StatusCode = resp.StatusCode
	return &ack, nil
}

// compile-time check that WebhookProvider implements Provider
var _ Provider = (*WebhookProvider)(nil)
