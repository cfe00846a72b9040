package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/metrics"
	"github.com/notifyhub/jobqueue/internal/queue"
)

// StatsSource is anything that can produce a queue stats snapshot.
type StatsSource interface {
	Stats() queue.Stats
}

// StatsReporter returns a poll function for worker.Periodic that logs a
// stats snapshot and copies it into the metric gauges. m may be nil.
func StatsReporter(src StatsSource, m *metrics.Metrics, logger *zap.Logger) func(ctx context.Context) {
	return func(context.Context) {
		s := src.Stats()
		if m != nil {
			m.SetQueueStats(s)
		}
		logger.Info("queue stats",
			zap.Int("pending", s.Pending),
			zap.Int("processing", s.Processing),
			zap.Int("completed", s.Completed),
			zap.Int("failed", s.Failed),
			zap.Int("retry", s.Retry),
			zap.Int("delayed", s.Delayed),
			zap.Bool("paused", s.Paused),
			zap.Duration("avg_wait", s.AverageWaitTime),
			zap.Duration("avg_process", s.AverageProcessTime),
		)
	}
}
