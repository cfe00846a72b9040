// Package client is a small HTTP client for the job queue API, used by
// queuectl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/queue"
	"github.com/notifyhub/jobqueue/internal/service"
)

// Task is the server's view of a queued task.
type Task = queue.Item[domain.Task]

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to one server.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	correlationID string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithCorrelationID returns a copy that tags every request with id.
func (c *Client) WithCorrelationID(id string) *Client {
	clone := *c
	clone.correlationID = id
	return &clone
}

func (c *Client) Submit(ctx context.Context, req domain.SubmitTaskRequest) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPost, "/api/v1/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) SubmitBatch(ctx context.Context, reqs []domain.SubmitTaskRequest) (*service.BatchResult, error) {
	var res service.BatchResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/tasks/batch", domain.SubmitBatchRequest{Tasks: reqs}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) Cancel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*domain.QueueStats, error) {
	return c.stats(ctx, http.MethodGet, "/api/v1/queue/stats")
}

func (c *Client) Pause(ctx context.Context) (*domain.QueueStats, error) {
	return c.stats(ctx, http.MethodPost, "/api/v1/queue/pause")
}

func (c *Client) Resume(ctx context.Context) (*domain.QueueStats, error) {
	return c.stats(ctx, http.MethodPost, "/api/v1/queue/resume")
}

// ClearPending drops every pending task and returns how many were dropped.
func (c *Client) ClearPending(ctx context.Context) (int, error) {
	var res struct {
		Cleared int `json:"cleared"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/v1/queue/pending", nil, &res); err != nil {
		return 0, err
	}
	return res.Cleared, nil
}

// OutcomeQuery filters the outcome history. Zero fields are omitted.
type OutcomeQuery struct {
	Status string
	Topic  string
	From   time.Time
	To     time.Time
	Page   int
	Limit  int
}

func (q OutcomeQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Topic != "" {
		v.Set("topic", q.Topic)
	}
	if !q.From.IsZero() {
		v.Set("from", q.From.Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.Format(time.RFC3339))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// OutcomePage is one page of outcome history.
type OutcomePage struct {
	Data  []domain.Outcome `json:"data"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (c *Client) Outcomes(ctx context.Context, q OutcomeQuery) (*OutcomePage, error) {
	path := "/api/v1/outcomes"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	var page OutcomePage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) stats(ctx context.Context, method, path string) (*domain.QueueStats, error) {
	var s domain.QueueStats
	if err := c.do(ctx, method, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.correlationID != "" {
		req.Header.Set("X-Correlation-ID", c.correlationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
