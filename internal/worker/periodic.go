package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Periodic calls poll every interval until its context is cancelled.
// It backs background chores such as stats reporting.
type Periodic struct {
	name     string
	interval time.Duration
	poll     func(ctx context.Context)
	logger   *zap.Logger
}

// NewPeriodic creates a loop that calls poll every interval.
func NewPeriodic(name string, interval time.Duration, poll func(ctx context.Context), logger *zap.Logger) *Periodic {
	return &Periodic{name: name, interval: interval, poll: poll, logger: logger}
}

// Run ticks every interval. Stops cleanly when ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("periodic worker started",
		zap.String("name", p.name),
		zap.Duration("interval", p.interval),
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("periodic worker stopping", zap.String("name", p.name))
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}
