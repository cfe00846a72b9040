package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/metrics"
	"github.com/notifyhub/jobqueue/internal/queue"
)

type job struct{ topic string }

func topicOf(j job) string { return j.topic }

func TestSubscribe_CountsEvents(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	bus := queue.NewBus[job](zap.NewNop())
	metrics.Subscribe(m, bus, topicOf)

	item := &queue.Item[job]{ID: "a", Data: job{topic: "mail"}}
	bus.Emit(queue.Event[job]{Type: queue.EventItemAdded, Item: item})
	bus.Emit(queue.Event[job]{Type: queue.EventItemRetry, Item: item, Payload: queue.RetryPayload{Err: errors.New("x"), Delay: time.Second}})
	bus.Emit(queue.Event[job]{Type: queue.EventItemCompleted, Item: item, Payload: queue.CompletedPayload{Duration: 20 * time.Millisecond}})
	bus.Emit(queue.Event[job]{Type: queue.EventItemFailed, Item: &queue.Item[job]{ID: "b", Data: job{topic: "sms"}}})
	bus.Emit(queue.Event[job]{Type: queue.EventItemRemoved, Item: item})
	bus.Emit(queue.Event[job]{Type: queue.EventQueueCleared, Payload: queue.ClearedPayload{Count: 4}})

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"added", testutil.ToFloat64(m.ItemsAdded.WithLabelValues("mail")), 1},
		{"retried", testutil.ToFloat64(m.ItemsRetried.WithLabelValues("mail")), 1},
		{"completed", testutil.ToFloat64(m.ItemsCompleted.WithLabelValues("mail")), 1},
		{"failed", testutil.ToFloat64(m.ItemsFailed.WithLabelValues("sms")), 1},
		{"removed", testutil.ToFloat64(m.ItemsRemoved.WithLabelValues("mail")), 1},
		{"cleared", testutil.ToFloat64(m.ItemsCleared), 4},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if n := testutil.CollectAndCount(m.ProcessingDuration); n != 1 {
		t.Errorf("processing histogram series = %d, want 1", n)
	}
	if n := testutil.CollectAndCount(m.RetryDelay); n != 1 {
		t.Errorf("retry delay histogram series = %d, want 1", n)
	}
}

func TestSubscribe_PauseGauge(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	bus := queue.NewBus[job](zap.NewNop())
	metrics.Subscribe(m, bus, topicOf)

	bus.Emit(queue.Event[job]{Type: queue.EventQueuePaused})
	if got := testutil.ToFloat64(m.QueuePaused); got != 1 {
		t.Fatalf("paused gauge = %v, want 1", got)
	}
	bus.Emit(queue.Event[job]{Type: queue.EventQueueResumed})
	if got := testutil.ToFloat64(m.QueuePaused); got != 0 {
		t.Fatalf("paused gauge = %v, want 0", got)
	}
}

func TestSetQueueStats(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.SetQueueStats(queue.Stats{Pending: 3, Processing: 2, Delayed: 1, Paused: true})

	if testutil.ToFloat64(m.QueuePending) != 3 ||
		testutil.ToFloat64(m.QueueProcessing) != 2 ||
		testutil.ToFloat64(m.QueueDelayed) != 1 ||
		testutil.ToFloat64(m.QueuePaused) != 1 {
		t.Fatal("gauges do not reflect the snapshot")
	}
}
