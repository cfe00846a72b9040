package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// HandleFunc processes one job pulled from the pool's channel.
type HandleFunc[J any] func(ctx context.Context, job J)

// Worker is a single goroutine that keeps pulling jobs from a shared
// channel and handing them to the handle func.
type Worker[J any] struct {
	id     int
	jobs   <-chan J
	handle HandleFunc[J]
	logger *zap.Logger
}

// NewWorker constructs a worker; it does nothing until Run.
func NewWorker[J any](id int, jobs <-chan J, handle HandleFunc[J], logger *zap.Logger) *Worker[J] {
	return &Worker[J]{id: id, jobs: jobs, handle: handle, logger: logger}
}

// Run blocks until ctx is cancelled or the jobs channel is closed.
func (w *Worker[J]) Run(ctx context.Context) {
	w.logger.Debug("worker started", zap.Int("id", w.id))
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("worker stopping", zap.Int("id", w.id))
			return
		case job, ok := <-w.jobs:
			if !ok {
				w.logger.Debug("worker stopping, channel closed", zap.Int("id", w.id))
				return
			}
			w.process(ctx, job)
		}
	}
}

// process keeps a panicking handler from taking the worker down with it.
func (w *Worker[J]) process(ctx context.Context, job J) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker handler panicked",
				zap.Int("id", w.id),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()
	w.handle(ctx, job)
}
