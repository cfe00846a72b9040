package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// JobFunc does the actual work for one item. The context is cancelled when
// the queue shuts down.
type JobFunc[T any] func(ctx context.Context, data T) (any, error)

// ItemProcessor runs a single item and reports the outcome through events.
type ItemProcessor[T any] interface {
	Process(ctx context.Context, item *Item[T]) (any, error)
}

// Processor is the default ItemProcessor.
type Processor[T any] struct {
	job    JobFunc[T]
	opts   Options
	bus    EventBus[T]
	logger *zap.Logger
	now    func() time.Time
}

// NewProcessor creates a processor that runs job and reports on bus.
func NewProcessor[T any](job JobFunc[T], opts Options, bus EventBus[T], logger *zap.Logger) *Processor[T] {
	return &Processor[T]{
		job:    job,
		opts:   opts.normalize(),
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// Process emits item:started, runs the job and classifies the result.
// A failure with retries left returns *RetryError after emitting item:retry;
// otherwise it returns *FinalError after emitting item:failed.
func (p *Processor[T]) Process(ctx context.Context, item *Item[T]) (any, error) {
	// Attempt is read once: a retry handler bumps it during Emit.
	attempt := item.Attempt
	log := p.logger.With(zap.String("item_id", item.ID), zap.Int("attempt", attempt))

	p.bus.Emit(Event[T]{Type: EventItemStarted, Item: item.Clone()})

	start := p.now()
	result, err := p.invoke(ctx, item.Data)
	elapsed := p.now().Sub(start)

	if err == nil {
		log.Debug("job succeeded", zap.Duration("duration", elapsed))
		p.bus.Emit(Event[T]{
			Type:    EventItemCompleted,
			Item:    item.Clone(),
			Payload: CompletedPayload{Result: result, Duration: elapsed},
		})
		return result, nil
	}

	if attempt < p.opts.MaxRetries {
		delay := RetryDelay(p.opts.RetryStrategy, p.opts.RetryDelay, p.opts.RetryMultiplier, attempt)
		log.Warn("job failed, scheduling retry",
			zap.Error(err),
			zap.Int("max_retries", p.opts.MaxRetries),
			zap.Duration("retry_delay", delay),
		)
		p.bus.Emit(Event[T]{
			Type:    EventItemRetry,
			Item:    item.Clone(),
			Payload: RetryPayload{Err: err, Delay: delay},
		})
		return nil, &RetryError{Attempt: attempt, Delay: delay, Err: err}
	}

	log.Error("job failed permanently", zap.Error(err), zap.Int("max_retries", p.opts.MaxRetries))
	p.bus.Emit(Event[T]{
		Type:    EventItemFailed,
		Item:    item.Clone(),
		Payload: FailedPayload{Err: err},
	})
	return nil, &FinalError{Attempts: attempt + 1, Err: err}
}

// invoke turns a panicking job into an ordinary failure.
func (p *Processor[T]) invoke(ctx context.Context, data T) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return p.job(ctx, data)
}

var _ ItemProcessor[struct{}] = (*Processor[struct{}])(nil)
