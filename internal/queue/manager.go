package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/worker"
)

// Dependencies lets callers swap any collaborator, typically for test
// doubles. Nil fields get the default implementation.
type Dependencies[T any] struct {
	State     StateStore[T]
	Selector  Selector[T]
	Processor ItemProcessor[T]
	Bus       EventBus[T]
}

// delayedRetry is an item waiting out its retry delay. It belongs to no
// state collection until the timer fires.
type delayedRetry[T any] struct {
	item  *Item[T]
	timer *time.Timer
}

// Manager is a priority-ordered, concurrency-bounded in-memory queue.
//
// A dispatcher goroutine admits pending items into processing (highest
// priority first, FIFO within a priority) and hands them to a fixed pool of
// Concurrency workers. Outcomes come back exclusively as events, which the
// Manager's own handlers turn into state transitions.
//
// One mutex guards the state store, retry timers and timing windows. Events
// are always emitted with that mutex released, so handlers may call back
// into the Manager.
type Manager[T any] struct {
	opts      Options
	logger    *zap.Logger
	state     StateStore[T]
	selector  Selector[T]
	processor ItemProcessor[T]
	bus       EventBus[T]
	now       func() time.Time

	mu           sync.Mutex
	started      bool
	paused       bool
	idle         bool
	seq          uint64
	delayed      map[string]*delayedRetry[T]
	waitTimes    *rollingWindow
	processTimes *rollingWindow

	wakeCh chan struct{}
	jobs   chan *Item[T]
	pool   *worker.Pool[*Item[T]]
	wg     sync.WaitGroup
}

// NewManager wires the manager and registers its bookkeeping handlers on
// the bus. Nothing runs until Start.
func NewManager[T any](job JobFunc[T], opts Options, logger *zap.Logger, deps Dependencies[T]) *Manager[T] {
	opts = opts.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager[T]{
		opts:         opts,
		logger:       logger,
		state:        deps.State,
		selector:     deps.Selector,
		processor:    deps.Processor,
		bus:          deps.Bus,
		now:          time.Now,
		paused:       opts.Paused,
		idle:         true,
		delayed:      make(map[string]*delayedRetry[T]),
		waitTimes:    newRollingWindow(opts.SampleSize),
		processTimes: newRollingWindow(opts.SampleSize),
		wakeCh:       make(chan struct{}, 1),
		jobs:         make(chan *Item[T], opts.Concurrency),
	}
	if m.state == nil {
		m.state = NewState[T](logger)
	}
	if m.selector == nil {
		m.selector = PrioritySelector[T]{}
	}
	if m.bus == nil {
		m.bus = NewBus[T](logger)
	}
	if m.processor == nil {
		m.processor = NewProcessor(job, opts, m.bus, logger)
	}
	m.pool = worker.NewPool(opts.Concurrency, m.jobs, m.runItem, logger)

	m.bus.On(EventItemCompleted, NewHandler(m.handleCompleted))
	m.bus.On(EventItemFailed, NewHandler(m.handleFailed))
	m.bus.On(EventItemRetry, NewHandler(m.handleRetry))

	logger.Info("queue manager initialized",
		zap.Int("concurrency", opts.Concurrency),
		zap.Int("max_retries", opts.MaxRetries),
		zap.Duration("retry_delay", opts.RetryDelay),
		zap.String("retry_strategy", string(opts.RetryStrategy)),
		zap.Bool("paused", opts.Paused),
	)
	return m
}

// Start launches the dispatcher and the worker pool. Cancelling ctx stops
// both; in-flight jobs see the same cancellation. A Manager starts once.
func (m *Manager[T]) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.pool.Start(ctx)
	m.wg.Add(1)
	go m.run(ctx)
	m.wake()
}

// Wait blocks until the dispatcher and every worker have returned.
func (m *Manager[T]) Wait() {
	m.wg.Wait()
	m.pool.Wait()
}

// Enqueue adds a pending item. Priority 0 is the default tier; larger runs
// sooner. It fails with ErrDuplicateID while the id is tracked anywhere,
// including an item waiting out a retry delay.
func (m *Manager[T]) Enqueue(id string, data T, priority int) (*Item[T], error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	m.mu.Lock()
	if m.state.GetItem(id) != nil || m.delayed[id] != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	m.seq++
	item := &Item[T]{
		ID:       id,
		Data:     data,
		Status:   StatusPending,
		Priority: priority,
		AddedAt:  m.now(),
		seq:      m.seq,
	}
	m.state.AddPending(item)
	snapshot := item.Clone()
	paused := m.paused
	m.mu.Unlock()

	m.logger.Info("item enqueued", zap.String("item_id", id), zap.Int("priority", priority))
	m.bus.Emit(Event[T]{Type: EventItemAdded, Item: snapshot})
	if !paused {
		m.wake()
	}
	return snapshot, nil
}

// Dequeue removes the item from whichever collection holds it, or cancels
// its pending retry. A processing item is forgotten but its job keeps
// running; its outcome is then ignored, even if the id has been enqueued
// again in the meantime.
func (m *Manager[T]) Dequeue(id string) bool {
	removed := m.remove(id)
	if removed == nil {
		return false
	}

	m.logger.Info("item removed", zap.String("item_id", id), zap.String("status", string(removed.Status)))
	m.bus.Emit(Event[T]{Type: EventItemRemoved, Item: removed})
	m.wake()
	return true
}

func (m *Manager[T]) remove(id string) *Item[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.GetItem(id).Clone()
	if m.state.RemoveItem(id) {
		if snapshot == nil {
			snapshot = &Item[T]{ID: id}
		}
		return snapshot
	}
	if entry, ok := m.delayed[id]; ok {
		entry.timer.Stop()
		delete(m.delayed, id)
		return entry.item.Clone()
	}
	return nil
}

// Clear drops every pending item. Processing, completed, failed and
// retry-delayed items are left alone.
func (m *Manager[T]) Clear() int {
	m.mu.Lock()
	n := m.state.ClearPending()
	m.mu.Unlock()

	if n > 0 {
		m.logger.Info("pending items cleared", zap.Int("count", n))
		m.bus.Emit(Event[T]{Type: EventQueueCleared, Payload: ClearedPayload{Count: n}})
	}
	return n
}

// Pause stops admitting new work. Running jobs are not interrupted.
func (m *Manager[T]) Pause() {
	m.mu.Lock()
	if m.paused {
		m.mu.Unlock()
		return
	}
	m.paused = true
	m.mu.Unlock()

	m.logger.Info("queue paused")
	m.bus.Emit(Event[T]{Type: EventQueuePaused})
}

// Resume re-enables admission and wakes the dispatcher.
func (m *Manager[T]) Resume() {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return
	}
	m.paused = false
	m.mu.Unlock()

	m.logger.Info("queue resumed")
	m.bus.Emit(Event[T]{Type: EventQueueResumed})
	m.wake()
}

func (m *Manager[T]) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// GetItem returns a snapshot of the item, or nil if it is not tracked.
func (m *Manager[T]) GetItem(id string) *Item[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item := m.state.GetItem(id); item != nil {
		return item.Clone()
	}
	if entry, ok := m.delayed[id]; ok {
		return entry.item.Clone()
	}
	return nil
}

func (m *Manager[T]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state.Stats(m.waitTimes.average(), m.processTimes.average())
	s.Delayed = len(m.delayed)
	s.Paused = m.paused
	return s
}

func (m *Manager[T]) On(event EventType, h *Handler[T])  { m.bus.On(event, h) }
func (m *Manager[T]) Off(event EventType, h *Handler[T]) { m.bus.Off(event, h) }

// wake nudges the dispatcher. Bursts coalesce into one pass.
func (m *Manager[T]) wake() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}

// run is the dispatcher loop. It sweeps on every wake-up and, while work
// remains pending or processing, re-arms a timer so the queue is re-checked
// even if no event arrives. Resetting the timer replaces any earlier one.
func (m *Manager[T]) run(ctx context.Context) {
	defer m.wg.Done()
	defer m.releaseDelayed()

	rearm := time.NewTimer(m.opts.RearmInterval)
	rearm.Stop()
	defer rearm.Stop()

	m.logger.Info("queue dispatcher started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("queue dispatcher stopping")
			return
		case <-m.wakeCh:
		case <-rearm.C:
		}

		busy, err := m.sweep(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				continue
			}
			m.logger.Error("dispatch pass failed, backing off",
				zap.Error(err),
				zap.Duration("backoff", m.opts.ErrorBackoff),
			)
			select {
			case <-ctx.Done():
			case <-time.After(m.opts.ErrorBackoff):
				m.wake()
			}
			continue
		}
		if busy {
			rearm.Reset(m.opts.RearmInterval)
		}
	}
}

// sweep runs one dispatch pass: admit what capacity allows, hand the
// admitted items to the pool, and report whether the queue is still busy.
func (m *Manager[T]) sweep(ctx context.Context) (busy bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
	}()

	batch, busy, drained := m.admit()
	for i, item := range batch {
		select {
		case m.jobs <- item:
		case <-ctx.Done():
			m.logger.Warn("shutdown with admitted items not handed to workers",
				zap.Int("count", len(batch)-i))
			return false, ctx.Err()
		}
	}
	if drained {
		m.bus.Emit(Event[T]{Type: EventQueueEmpty})
	}
	return busy, nil
}

// admit moves items from pending to processing while capacity allows.
// drained is true only on the busy→idle transition, so queue:empty fires
// once per drain.
func (m *Manager[T]) admit() (batch []*Item[T], busy, drained bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused {
		return nil, false, false
	}

	for len(m.state.PendingItems()) > 0 && len(m.state.ProcessingItems()) < m.opts.Concurrency {
		next := m.selector.HighestPriority(m.state.PendingItems())
		if next == nil {
			break
		}
		item := m.state.MoveToProcessing(next.ID)
		if item == nil {
			break
		}

		wait := m.now().Sub(item.AddedAt)
		m.waitTimes.add(wait)
		m.logger.Info("processing item",
			zap.String("item_id", item.ID),
			zap.Int("priority", item.Priority),
			zap.Int("attempt", item.Attempt+1),
			zap.Duration("wait", wait),
		)
		batch = append(batch, item)
	}

	busy = len(m.state.PendingItems()) > 0 || len(m.state.ProcessingItems()) > 0
	if busy || len(m.delayed) > 0 {
		m.idle = false
		return batch, busy, false
	}
	if m.idle {
		return batch, false, false
	}
	m.idle = true
	m.logger.Debug("queue drained")
	return batch, false, true
}

// runItem is the worker pool's handler. Outcomes are observed through
// events, so the returned error is only logged.
func (m *Manager[T]) runItem(ctx context.Context, item *Item[T]) {
	if _, err := m.processor.Process(ctx, item); err != nil {
		m.logger.Debug("item attempt unsuccessful", zap.String("item_id", item.ID), zap.Error(err))
	}
}

func (m *Manager[T]) handleCompleted(e Event[T]) {
	if e.Item == nil {
		return
	}
	p, _ := e.Payload.(CompletedPayload)

	moved := func() *Item[T] {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.ownsProcessing(e.Item) {
			return nil
		}
		m.processTimes.add(p.Duration)
		return m.state.MoveToCompleted(e.Item.ID, p.Result)
	}()

	if moved == nil {
		m.logger.Debug("completed item is no longer processing", zap.String("item_id", e.Item.ID))
	} else {
		m.logger.Info("item completed", zap.String("item_id", e.Item.ID), zap.Duration("duration", p.Duration))
	}
	m.wake()
}

func (m *Manager[T]) handleFailed(e Event[T]) {
	if e.Item == nil {
		return
	}
	p, _ := e.Payload.(FailedPayload)

	moved := func() *Item[T] {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.ownsProcessing(e.Item) {
			return nil
		}
		return m.state.MoveToFailed(e.Item.ID, errString(p.Err))
	}()

	if moved != nil {
		m.logger.Error("item failed", zap.String("item_id", e.Item.ID), zap.Int("attempts", moved.Attempt+1), zap.Error(p.Err))
	}
	m.wake()
}

// ownsProcessing reports whether the processing entry for snapshot's id is
// the same enqueue the snapshot was taken from. An item dequeued while
// running and then enqueued again under its id must not pick up the old
// run's outcome. Callers hold m.mu.
func (m *Manager[T]) ownsProcessing(snapshot *Item[T]) bool {
	cur, ok := m.state.ProcessingItems()[snapshot.ID]
	return ok && cur.seq == snapshot.seq
}

// handleRetry relies on the processor emitting item:retry instead of
// item:failed for a retryable failure: the item is still in processing
// here, and PrepareForRetry takes it from there. MoveToFailed only ever
// runs for terminal failures.
func (m *Manager[T]) handleRetry(e Event[T]) {
	if e.Item == nil {
		return
	}
	p, _ := e.Payload.(RetryPayload)

	item := func() *Item[T] {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.ownsProcessing(e.Item) {
			return nil
		}

		item := m.state.PrepareForRetry(e.Item.ID, errString(p.Err))
		if item == nil {
			return nil
		}
		entry := &delayedRetry[T]{item: item}
		entry.timer = time.AfterFunc(p.Delay, func() { m.requeue(entry) })
		m.delayed[item.ID] = entry
		m.idle = false
		return item
	}()

	if item == nil {
		m.logger.Debug("retry for an item that is no longer processing", zap.String("item_id", e.Item.ID))
		return
	}
	m.logger.Info("item scheduled for retry",
		zap.String("item_id", e.Item.ID),
		zap.Int("next_attempt", e.Item.Attempt+2),
		zap.Duration("delay", p.Delay),
	)
	m.wake()
}

// requeue puts a retried item back into pending once its delay is over,
// unless it was dequeued or released in the meantime.
func (m *Manager[T]) requeue(entry *delayedRetry[T]) {
	id := entry.item.ID

	ok, paused := func() (bool, bool) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.delayed[id] != entry {
			return false, m.paused
		}
		delete(m.delayed, id)
		m.state.AddPending(entry.item)
		return true, m.paused
	}()
	if !ok {
		return
	}

	m.logger.Info("item re-queued for retry", zap.String("item_id", id))
	if !paused {
		m.wake()
	}
}

// releaseDelayed runs at shutdown: retry timers are stopped and their items
// go straight back to pending so they stay visible.
func (m *Manager[T]) releaseDelayed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, entry := range m.delayed {
		entry.timer.Stop()
		delete(m.delayed, id)
		m.state.AddPending(entry.item)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
