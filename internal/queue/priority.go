package queue

import "time"

// Selector picks the next pending item to run.
type Selector[T any] interface {
	HighestPriority(pending map[string]*Item[T]) *Item[T]
}

// PrioritySelector picks the item with the largest Priority and, within a
// tier, the one enqueued first.
type PrioritySelector[T any] struct {
	// Now is used by DynamicPriority. Nil means time.Now.
	Now func() time.Time
}

func (PrioritySelector[T]) HighestPriority(pending map[string]*Item[T]) *Item[T] {
	var best *Item[T]
	for _, item := range pending {
		if best == nil || runsBefore(item, best) {
			best = item
		}
	}
	return best
}

func runsBefore[T any](a, b *Item[T]) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.AddedAt.Equal(b.AddedAt) {
		return a.AddedAt.Before(b.AddedAt)
	}
	return a.seq < b.seq
}

// DynamicPriority blends static priority with age so long-waiting items can
// overtake newer, slightly more urgent ones:
//
//	priority*baseWeight + min(wait/maxWaitTime, 1)*waitTimeWeight
//
// HighestPriority does not use it; it is offered to callers that want
// aging-aware ordering.
func (s PrioritySelector[T]) DynamicPriority(item *Item[T], baseWeight, waitTimeWeight float64, maxWaitTime time.Duration) float64 {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	score := float64(item.Priority) * baseWeight
	if maxWaitTime <= 0 {
		return score
	}

	normalized := float64(now().Sub(item.AddedAt)) / float64(maxWaitTime)
	switch {
	case normalized < 0:
		normalized = 0
	case normalized > 1:
		normalized = 1
	}
	return score + normalized*waitTimeWeight
}

var _ Selector[struct{}] = PrioritySelector[struct{}]{}
