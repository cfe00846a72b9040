package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/provider"
)

var task = domain.Task{ID: "t-1", Topic: "invoices", Payload: json.RawMessage(`{"n":1}`)}

func TestWebhookProvider_Deliver(t *testing.T) {
	var got provider.DeliverRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("X-Task-ID") != "t-1" {
			t.Errorf("missing task id header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"messageId":"m-9","status":"queued"}`))
	}))
	defer srv.Close()

	p := provider.NewWebhookProvider(srv.URL, time.Second)
	resp, err := p.Deliver(context.Background(), task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted || resp.MessageID != "m-9" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.ID != "t-1" || got.Topic != "invoices" || string(got.Payload) != `{"n":1}` {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestWebhookProvider_EmptyBodyAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := provider.NewWebhookProvider(srv.URL, time.Second).Deliver(context.Background(), task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("StatusCode = %d", resp.StatusCode)
	}
}

func TestWebhookProvider_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := provider.NewWebhookProvider(srv.URL, time.Second).Deliver(context.Background(), task)
	var se *provider.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
}

func TestWebhookProvider_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := provider.NewWebhookProvider(srv.URL, time.Second).Deliver(ctx, task); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
