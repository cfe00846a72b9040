package queue_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/queue"
)

// recordingBus captures emitted events instead of dispatching them.
type recordingBus struct {
	mu     sync.Mutex
	events []queue.Event[string]
}

func (b *recordingBus) On(queue.EventType, *queue.Handler[string])  {}
func (b *recordingBus) Off(queue.EventType, *queue.Handler[string]) {}

func (b *recordingBus) Emit(e queue.Event[string]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) types() []queue.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]queue.EventType, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

func (b *recordingBus) last() queue.Event[string] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events[len(b.events)-1]
}

var errTransient = errors.New("transient")

func processorOptions(maxRetries int) queue.Options {
	opts := queue.DefaultOptions()
	opts.MaxRetries = maxRetries
	opts.RetryDelay = 10 * time.Millisecond
	opts.RetryStrategy = queue.RetryExponential
	opts.RetryMultiplier = 2
	return opts
}

func TestProcessor_Success(t *testing.T) {
	bus := &recordingBus{}
	var got string
	p := queue.NewProcessor(func(_ context.Context, data string) (any, error) {
		got = data
		return "ok", nil
	}, processorOptions(3), bus, zap.NewNop())

	result, err := p.Process(context.Background(), &queue.Item[string]{ID: "a", Data: "payload"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" || got != "payload" {
		t.Fatalf("result=%v data=%q", result, got)
	}

	types := bus.types()
	if len(types) != 2 || types[0] != queue.EventItemStarted || types[1] != queue.EventItemCompleted {
		t.Fatalf("unexpected events: %v", types)
	}
	payload, ok := bus.last().Payload.(queue.CompletedPayload)
	if !ok {
		t.Fatalf("completed event carries %T", bus.last().Payload)
	}
	if payload.Result != "ok" || payload.Duration < 0 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestProcessor_RetryableFailure(t *testing.T) {
	tests := []struct {
		attempt   int
		wantDelay time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 20 * time.Millisecond},
		{2, 40 * time.Millisecond},
	}

	for _, tc := range tests {
		bus := &recordingBus{}
		p := queue.NewProcessor(func(context.Context, string) (any, error) {
			return nil, errTransient
		}, processorOptions(3), bus, zap.NewNop())

		_, err := p.Process(context.Background(), &queue.Item[string]{ID: "a", Attempt: tc.attempt})

		var retryErr *queue.RetryError
		if !errors.As(err, &retryErr) {
			t.Fatalf("attempt %d: expected *RetryError, got %v", tc.attempt, err)
		}
		if retryErr.Delay != tc.wantDelay {
			t.Fatalf("attempt %d: delay = %v, want %v", tc.attempt, retryErr.Delay, tc.wantDelay)
		}
		if !errors.Is(err, errTransient) {
			t.Fatal("RetryError must unwrap to the job error")
		}

		e := bus.last()
		if e.Type != queue.EventItemRetry {
			t.Fatalf("last event = %s, want item:retry", e.Type)
		}
		payload := e.Payload.(queue.RetryPayload)
		if payload.Delay != tc.wantDelay || !errors.Is(payload.Err, errTransient) {
			t.Fatalf("unexpected retry payload: %+v", payload)
		}
	}
}

func TestProcessor_FinalFailure(t *testing.T) {
	bus := &recordingBus{}
	p := queue.NewProcessor(func(context.Context, string) (any, error) {
		return nil, errTransient
	}, processorOptions(2), bus, zap.NewNop())

	_, err := p.Process(context.Background(), &queue.Item[string]{ID: "a", Attempt: 2})

	var finalErr *queue.FinalError
	if !errors.As(err, &finalErr) {
		t.Fatalf("expected *FinalError, got %v", err)
	}
	if finalErr.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", finalErr.Attempts)
	}
	if e := bus.last(); e.Type != queue.EventItemFailed {
		t.Fatalf("last event = %s, want item:failed", e.Type)
	}
}

func TestProcessor_PanickingJobCountsAsFailure(t *testing.T) {
	bus := &recordingBus{}
	p := queue.NewProcessor(func(context.Context, string) (any, error) {
		panic("nil map write")
	}, processorOptions(0), bus, zap.NewNop())

	_, err := p.Process(context.Background(), &queue.Item[string]{ID: "a"})

	var finalErr *queue.FinalError
	if !errors.As(err, &finalErr) {
		t.Fatalf("expected *FinalError, got %v", err)
	}
	if !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("error should mention the panic: %v", err)
	}
}

func TestProcessor_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	var seen any
	p := queue.NewProcessor(func(ctx context.Context, _ string) (any, error) {
		seen = ctx.Value(key{})
		return nil, nil
	}, processorOptions(0), &recordingBus{}, zap.NewNop())

	if _, err := p.Process(ctx, &queue.Item[string]{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if seen != "v" {
		t.Fatal("job did not receive the processing context")
	}
}
