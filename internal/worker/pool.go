package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pool manages a fixed set of workers sharing one jobs channel. The pool
// size is the hard cap on concurrently running handlers.
type Pool[J any] struct {
	workers []*Worker[J]
	wg      sync.WaitGroup
}

// NewPool creates a pool of size workers sharing the jobs channel. A size
// below one is raised to one.
func NewPool[J any](size int, jobs <-chan J, handle HandleFunc[J], logger *zap.Logger) *Pool[J] {
	if size < 1 {
		size = 1
	}
	workers := make([]*Worker[J], size)
	for i := range workers {
		workers[i] = NewWorker(i, jobs, handle, logger.With(zap.Int("worker_id", i)))
	}
	return &Pool[J]{workers: workers}
}

// Size returns the number of workers.
func (p *Pool[J]) Size() int { return len(p.workers) }

// Start launches all workers. Cancelling ctx stops them after their
// current job.
func (p *Pool[J]) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker[J]) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned.
func (p *Pool[J]) Wait() {
	p.wg.Wait()
}
