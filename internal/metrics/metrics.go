package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/jobqueue/internal/queue"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ItemsAdded     *prometheus.CounterVec
	ItemsCompleted *prometheus.CounterVec
	ItemsFailed    *prometheus.CounterVec
	ItemsRetried   *prometheus.CounterVec
	ItemsRemoved   *prometheus.CounterVec
	ItemsCleared   prometheus.Counter

	ProcessingDuration *prometheus.HistogramVec
	RetryDelay         prometheus.Histogram

	QueuePending    prometheus.Gauge
	QueueProcessing prometheus.Gauge
	QueueDelayed    prometheus.Gauge
	QueuePaused     prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_items_added_total",
			Help: "Total number of items accepted by the queue.",
		}, []string{"topic"}),

		ItemsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_items_completed_total",
			Help: "Total number of items whose job succeeded.",
		}, []string{"topic"}),

		ItemsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_items_failed_total",
			Help: "Total number of items that failed permanently (retries exhausted).",
		}, []string{"topic"}),

		ItemsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_items_retried_total",
			Help: "Total number of retries scheduled.",
		}, []string{"topic"}),

		ItemsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_items_removed_total",
			Help: "Total number of items removed by id.",
		}, []string{"topic"}),

		ItemsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_items_cleared_total",
			Help: "Total number of pending items dropped by clear.",
		}),

		ProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_processing_seconds",
			Help:    "Job function duration for successful attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),

		RetryDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_retry_delay_seconds",
			Help:    "Backoff delay applied before a retry.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),

		QueuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_pending_items",
			Help: "Current number of pending items.",
		}),
		QueueProcessing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_processing_items",
			Help: "Current number of items being processed.",
		}),
		QueueDelayed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_delayed_items",
			Help: "Current number of items waiting out a retry delay.",
		}),
		QueuePaused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_paused",
			Help: "1 while the queue is paused, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		m.ItemsAdded,
		m.ItemsCompleted,
		m.ItemsFailed,
		m.ItemsRetried,
		m.ItemsRemoved,
		m.ItemsCleared,
		m.ProcessingDuration,
		m.RetryDelay,
		m.QueuePending,
		m.QueueProcessing,
		m.QueueDelayed,
		m.QueuePaused,
	)

	return m
}

// SetQueueStats copies a stats snapshot into the gauges.
func (m *Metrics) SetQueueStats(s queue.Stats) {
	m.QueuePending.Set(float64(s.Pending))
	m.QueueProcessing.Set(float64(s.Processing))
	m.QueueDelayed.Set(float64(s.Delayed))
	paused := 0.0
	if s.Paused {
		paused = 1
	}
	m.QueuePaused.Set(paused)
}

// Subscriber is anything that accepts queue event handlers, such as a
// queue.Manager or queue.Bus.
type Subscriber[T any] interface {
	On(event queue.EventType, h *queue.Handler[T])
}

// Subscribe feeds the counters and histograms from queue events. topic
// derives the label value from an item's data.
func Subscribe[T any](m *Metrics, bus Subscriber[T], topic func(T) string) {
	label := func(item *queue.Item[T]) string {
		if item == nil {
			return ""
		}
		return topic(item.Data)
	}

	bus.On(queue.EventItemAdded, queue.NewHandler(func(e queue.Event[T]) {
		m.ItemsAdded.WithLabelValues(label(e.Item)).Inc()
	}))
	bus.On(queue.EventItemCompleted, queue.NewHandler(func(e queue.Event[T]) {
		t := label(e.Item)
		m.ItemsCompleted.WithLabelValues(t).Inc()
		if p, ok := e.Payload.(queue.CompletedPayload); ok {
			m.ProcessingDuration.WithLabelValues(t).Observe(p.Duration.Seconds())
		}
	}))
	bus.On(queue.EventItemFailed, queue.NewHandler(func(e queue.Event[T]) {
		m.ItemsFailed.WithLabelValues(label(e.Item)).Inc()
	}))
	bus.On(queue.EventItemRetry, queue.NewHandler(func(e queue.Event[T]) {
		m.ItemsRetried.WithLabelValues(label(e.Item)).Inc()
		if p, ok := e.Payload.(queue.RetryPayload); ok {
			m.RetryDelay.Observe(p.Delay.Seconds())
		}
	}))
	bus.On(queue.EventItemRemoved, queue.NewHandler(func(e queue.Event[T]) {
		m.ItemsRemoved.WithLabelValues(label(e.Item)).Inc()
	}))
	bus.On(queue.EventQueueCleared, queue.NewHandler(func(e queue.Event[T]) {
		if p, ok := e.Payload.(queue.ClearedPayload); ok {
			m.ItemsCleared.Add(float64(p.Count))
		}
	}))
	bus.On(queue.EventQueuePaused, queue.NewHandler(func(queue.Event[T]) {
		m.QueuePaused.Set(1)
	}))
	bus.On(queue.EventQueueResumed, queue.NewHandler(func(queue.Event[T]) {
		m.QueuePaused.Set(0)
	}))
}
