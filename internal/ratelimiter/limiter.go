package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// TopicLimiters holds one token bucket per topic, created on first use.
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type TopicLimiters struct {
	mu       sync.Mutex
	r        rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// New creates a TopicLimiters with ratePerSec tokens per second per topic.
func New(ratePerSec int) *TopicLimiters {
	if ratePerSec < 1 {
		ratePerSec = 1
	}
	return &TopicLimiters{
		r:        rate.Limit(ratePerSec),
		burst:    ratePerSec,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the topic's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (tl *TopicLimiters) Wait(ctx context.Context, topic string) error {
	return tl.limiter(topic).Wait(ctx)
}

// Allow reports whether a delivery for topic may happen now without waiting.
func (tl *TopicLimiters) Allow(topic string) bool {
	return tl.limiter(topic).Allow()
}

// Topics returns how many topics have a limiter.
func (tl *TopicLimiters) Topics() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.limiters)
}

func (tl *TopicLimiters) limiter(topic string) *rate.Limiter {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	l, ok := tl.limiters[topic]
	if !ok {
		l = rate.NewLimiter(tl.r, tl.burst)
		tl.limiters[topic] = l
	}
	return l
}
