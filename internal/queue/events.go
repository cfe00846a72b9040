package queue

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType names a queue lifecycle event.
type EventType string

const (
	EventItemAdded     EventType = "item:added"
	EventItemStarted   EventType = "item:started"
	EventItemCompleted EventType = "item:completed"
	EventItemFailed    EventType = "item:failed"
	EventItemRetry     EventType = "item:retry"
	EventItemRemoved   EventType = "item:removed"
	EventQueueCleared  EventType = "queue:cleared"
	EventQueuePaused   EventType = "queue:paused"
	EventQueueResumed  EventType = "queue:resumed"
	EventQueueEmpty    EventType = "queue:empty"
)

// Payload is the event-specific data. The concrete type is fixed per event:
//
//	item:completed → CompletedPayload
//	item:retry     → RetryPayload
//	item:failed    → FailedPayload
//	queue:cleared  → ClearedPayload
//
// Every other event carries a nil Payload.
type Payload interface {
	eventPayload()
}

type CompletedPayload struct {
	Result   any
	Duration time.Duration
}

type RetryPayload struct {
	Err   error
	Delay time.Duration
}

type FailedPayload struct {
	Err error
}

type ClearedPayload struct {
	Count int
}

func (CompletedPayload) eventPayload() {}
func (RetryPayload) eventPayload()     {}
func (FailedPayload) eventPayload()    {}
func (ClearedPayload) eventPayload()   {}

// Event is delivered to handlers. Item is a snapshot and is nil for
// queue:* events.
type Event[T any] struct {
	Type    EventType
	Item    *Item[T]
	Payload Payload
}

// Handler wraps a callback. Its pointer is its identity, which is what makes
// On and Off idempotent.
type Handler[T any] struct {
	fn func(Event[T])
}

// NewHandler wraps fn. Keep the returned pointer to call Off later.
func NewHandler[T any](fn func(Event[T])) *Handler[T] {
	return &Handler[T]{fn: fn}
}

// EventBus is the publish/subscribe surface the Manager and Processor use.
type EventBus[T any] interface {
	On(event EventType, h *Handler[T])
	Off(event EventType, h *Handler[T])
	Emit(e Event[T])
}

// Bus is the in-process EventBus. Handlers run synchronously on the
// emitting goroutine, so they must be safe for concurrent use when the
// queue runs more than one worker.
type Bus[T any] struct {
	mu       sync.RWMutex
	handlers map[EventType][]*Handler[T]
	logger   *zap.Logger
}

// NewBus creates a bus with no handlers.
func NewBus[T any](logger *zap.Logger) *Bus[T] {
	return &Bus[T]{
		handlers: make(map[EventType][]*Handler[T]),
		logger:   logger,
	}
}

// On registers h for event. Registering the same handler twice is a no-op.
func (b *Bus[T]) On(event EventType, h *Handler[T]) {
	if h == nil || h.fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.handlers[event] {
		if existing == h {
			return
		}
	}
	b.handlers[event] = append(b.handlers[event], h)
	b.logger.Debug("event handler registered", zap.String("event", string(event)))
}

// Off removes h from event, keeping the order of the remaining handlers.
func (b *Bus[T]) Off(event EventType, h *Handler[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hs := b.handlers[event]
	for i, existing := range hs {
		if existing == h {
			next := make([]*Handler[T], 0, len(hs)-1)
			next = append(next, hs[:i]...)
			b.handlers[event] = append(next, hs[i+1:]...)
			b.logger.Debug("event handler removed", zap.String("event", string(event)))
			return
		}
	}
}

// Emit invokes every handler registered for e.Type in registration order.
// The handler list is snapshotted first, so handlers may register or remove
// handlers while running.
func (b *Bus[T]) Emit(e Event[T]) {
	b.mu.RLock()
	hs := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range hs {
		b.invoke(h, e)
	}
}

func (b *Bus[T]) invoke(h *Handler[T], e Event[T]) {
	defer func() {
		if r := recover(); r != nil {
			fields := []zap.Field{zap.String("event", string(e.Type)), zap.Any("panic", r)}
			if e.Item != nil {
				fields = append(fields, zap.String("item_id", e.Item.ID))
			}
			b.logger.Error("event handler panicked", fields...)
		}
	}()
	h.fn(e)
}

// Clear drops every handler registered for event.
func (b *Bus[T]) Clear(event EventType) {
	b.mu.Lock()
	delete(b.handlers, event)
	b.mu.Unlock()
}

// Reset drops every handler for every event.
func (b *Bus[T]) Reset() {
	b.mu.Lock()
	b.handlers = make(map[EventType][]*Handler[T])
	b.mu.Unlock()
}

var _ EventBus[struct{}] = (*Bus[struct{}])(nil)
