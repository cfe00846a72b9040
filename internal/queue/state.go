package queue

import (
	"time"

	"go.uber.org/zap"
)

// StateStore owns the four item collections. Every status change goes
// through it. Lookups that miss return nil, false or zero.
type StateStore[T any] interface {
	AddPending(item *Item[T])
	MoveToProcessing(id string) *Item[T]
	MoveToCompleted(id string, result any) *Item[T]
	MoveToFailed(id string, errMsg string) *Item[T]
	PrepareForRetry(id string, errMsg string) *Item[T]
	RemoveItem(id string) bool
	ClearPending() int
	GetItem(id string) *Item[T]
	PendingItems() map[string]*Item[T]
	ProcessingItems() map[string]*Item[T]
	Stats(avgWait, avgProcess time.Duration) Stats
}

// State is the map-backed StateStore. It does no locking of its own; the
// Manager serializes every call.
type State[T any] struct {
	pending    map[string]*Item[T]
	processing map[string]*Item[T]
	completed  map[string]*Item[T]
	failed     map[string]*Item[T]
	now        func() time.Time
	logger     *zap.Logger
}

// NewState creates an empty store.
func NewState[T any](logger *zap.Logger) *State[T] {
	return &State[T]{
		pending:    make(map[string]*Item[T]),
		processing: make(map[string]*Item[T]),
		completed:  make(map[string]*Item[T]),
		failed:     make(map[string]*Item[T]),
		now:        time.Now,
		logger:     logger,
	}
}

// AddPending inserts item into pending. Callers check id uniqueness first.
func (s *State[T]) AddPending(item *Item[T]) {
	item.Status = StatusPending
	s.pending[item.ID] = item
	s.logger.Debug("item pending", zap.String("item_id", item.ID), zap.Int("attempt", item.Attempt))
}

func (s *State[T]) MoveToProcessing(id string) *Item[T] {
	item, ok := s.pending[id]
	if !ok {
		return nil
	}
	delete(s.pending, id)
	item.Status = StatusProcessing
	if item.StartedAt == nil {
		item.StartedAt = s.stamp()
	}
	s.processing[id] = item
	s.logger.Debug("item processing", zap.String("item_id", id))
	return item
}

func (s *State[T]) MoveToCompleted(id string, result any) *Item[T] {
	item, ok := s.processing[id]
	if !ok {
		return nil
	}
	delete(s.processing, id)
	item.Status = StatusCompleted
	if item.CompletedAt == nil {
		item.CompletedAt = s.stamp()
	}
	item.Result = result
	s.completed[id] = item
	s.logger.Debug("item completed", zap.String("item_id", id))
	return item
}

func (s *State[T]) MoveToFailed(id string, errMsg string) *Item[T] {
	item, ok := s.processing[id]
	if !ok {
		return nil
	}
	delete(s.processing, id)
	item.Status = StatusFailed
	if item.FailedAt == nil {
		item.FailedAt = s.stamp()
	}
	item.Error = errMsg
	s.failed[id] = item
	s.logger.Debug("item failed", zap.String("item_id", id))
	return item
}

// PrepareForRetry pulls the item out of processing (or failed), bumps its
// attempt counter and hands it back without re-inserting it anywhere. The
// caller re-adds it to pending once the retry delay has passed.
func (s *State[T]) PrepareForRetry(id string, errMsg string) *Item[T] {
	item, ok := s.processing[id]
	if ok {
		delete(s.processing, id)
	} else if item, ok = s.failed[id]; ok {
		delete(s.failed, id)
	} else {
		return nil
	}

	item.Status = StatusRetry
	item.Attempt++
	if errMsg != "" {
		item.Error = errMsg
	}
	s.logger.Debug("item prepared for retry", zap.String("item_id", id), zap.Int("attempt", item.Attempt))
	return item
}

func (s *State[T]) RemoveItem(id string) bool {
	for _, m := range s.collections() {
		if _, ok := m[id]; ok {
			delete(m, id)
			s.logger.Debug("item removed", zap.String("item_id", id))
			return true
		}
	}
	return false
}

// ClearPending drops every pending item and returns how many there were.
func (s *State[T]) ClearPending() int {
	n := len(s.pending)
	s.pending = make(map[string]*Item[T])
	s.logger.Debug("pending items cleared", zap.Int("count", n))
	return n
}

func (s *State[T]) GetItem(id string) *Item[T] {
	for _, m := range s.collections() {
		if item, ok := m[id]; ok {
			return item
		}
	}
	return nil
}

// PendingItems returns the live pending map.
func (s *State[T]) PendingItems() map[string]*Item[T] { return s.pending }

// ProcessingItems returns the live processing map.
func (s *State[T]) ProcessingItems() map[string]*Item[T] { return s.processing }

func (s *State[T]) Stats(avgWait, avgProcess time.Duration) Stats {
	retry := 0
	for _, item := range s.pending {
		if item.Attempt > 0 {
			retry++
		}
	}
	return Stats{
		Pending:            len(s.pending),
		Processing:         len(s.processing),
		Completed:          len(s.completed),
		Failed:             len(s.failed),
		Retry:              retry,
		Total:              len(s.pending) + len(s.processing) + len(s.completed) + len(s.failed),
		AverageWaitTime:    avgWait,
		AverageProcessTime: avgProcess,
	}
}

func (s *State[T]) collections() [4]map[string]*Item[T] {
	return [4]map[string]*Item[T]{s.pending, s.processing, s.completed, s.failed}
}

func (s *State[T]) stamp() *time.Time {
	t := s.now()
	return &t
}

var _ StateStore[struct{}] = (*State[struct{}])(nil)
