package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/queue"
	"github.com/notifyhub/jobqueue/internal/repository"
)

// OutcomeRecorder turns item:completed and item:failed events into rows in
// the outcome history. Event handlers only enqueue onto a buffered channel;
// Run does the writes, so workers never block on the repository. When the
// buffer is full the outcome is dropped with a warning.
type OutcomeRecorder struct {
	repo    repository.OutcomeRepository
	logger  *zap.Logger
	now     func() time.Time
	pending chan *domain.Outcome

	onCompleted *queue.Handler[domain.Task]
	onFailed    *queue.Handler[domain.Task]
}

func NewOutcomeRecorder(repo repository.OutcomeRepository, buffer int, logger *zap.Logger) *OutcomeRecorder {
	if buffer < 1 {
		buffer = 1
	}
	r := &OutcomeRecorder{
		repo:    repo,
		logger:  logger,
		now:     time.Now,
		pending: make(chan *domain.Outcome, buffer),
	}
	r.onCompleted = queue.NewHandler(r.handleCompleted)
	r.onFailed = queue.NewHandler(r.handleFailed)
	return r
}

// EventSource is where handlers are registered: a queue.Manager or a
// queue.Bus.
type EventSource interface {
	On(event queue.EventType, h *queue.Handler[domain.Task])
	Off(event queue.EventType, h *queue.Handler[domain.Task])
}

// Subscribe registers the recorder's handlers.
func (r *OutcomeRecorder) Subscribe(bus EventSource) {
	bus.On(queue.EventItemCompleted, r.onCompleted)
	bus.On(queue.EventItemFailed, r.onFailed)
}

// Unsubscribe removes the recorder's handlers.
func (r *OutcomeRecorder) Unsubscribe(bus EventSource) {
	bus.Off(queue.EventItemCompleted, r.onCompleted)
	bus.Off(queue.EventItemFailed, r.onFailed)
}

// Run writes outcomes until ctx is cancelled, then flushes what is already
// buffered using a fresh context bounded by flushTimeout.
func (r *OutcomeRecorder) Run(ctx context.Context, flushTimeout time.Duration) {
	r.logger.Info("outcome recorder started")
	for {
		select {
		case <-ctx.Done():
			r.flush(flushTimeout)
			r.logger.Info("outcome recorder stopping")
			return
		case o := <-r.pending:
			r.write(ctx, o)
		}
	}
}

func (r *OutcomeRecorder) flush(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		select {
		case o := <-r.pending:
			r.write(ctx, o)
		default:
			return
		}
	}
}

func (r *OutcomeRecorder) write(ctx context.Context, o *domain.Outcome) {
	if err := r.repo.Record(ctx, o); err != nil {
		r.logger.Error("failed to record outcome",
			zap.String("task_id", o.TaskID),
			zap.String("status", string(o.Status)),
			zap.Error(err),
		)
	}
}

func (r *OutcomeRecorder) handleCompleted(e queue.Event[domain.Task]) {
	if e.Item == nil {
		return
	}
	r.enqueue(r.outcome(e.Item, domain.OutcomeCompleted, ""))
}

func (r *OutcomeRecorder) handleFailed(e queue.Event[domain.Task]) {
	if e.Item == nil {
		return
	}
	msg := e.Item.Error
	if p, ok := e.Payload.(queue.FailedPayload); ok && p.Err != nil {
		msg = p.Err.Error()
	}
	r.enqueue(r.outcome(e.Item, domain.OutcomeFailed, msg))
}

// outcome measures duration from the first start, so retries are included.
func (r *OutcomeRecorder) outcome(item *queue.Item[domain.Task], status domain.OutcomeStatus, errMsg string) *domain.Outcome {
	finished := r.now().UTC()
	var duration time.Duration
	if item.StartedAt != nil {
		duration = finished.Sub(*item.StartedAt)
	}
	return &domain.Outcome{
		TaskID:     item.ID,
		Topic:      item.Data.Topic,
		Priority:   item.Priority,
		Status:     status,
		Attempts:   item.Attempt + 1,
		Error:      errMsg,
		DurationMS: duration.Milliseconds(),
		AddedAt:    item.AddedAt.UTC(),
		FinishedAt: finished,
	}
}

func (r *OutcomeRecorder) enqueue(o *domain.Outcome) {
	select {
	case r.pending <- o:
	default:
		r.logger.Warn("outcome buffer full, dropping outcome",
			zap.String("task_id", o.TaskID),
			zap.String("status", string(o.Status)),
		)
	}
}
