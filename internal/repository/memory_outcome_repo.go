package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/notifyhub/jobqueue/internal/domain"
)

// MemoryOutcomeRepository is an in-memory OutcomeRepository. It keeps at
// most capacity outcomes, dropping the oldest first.
type MemoryOutcomeRepository struct {
	mu       sync.RWMutex
	outcomes []*domain.Outcome
	capacity int

	// Optional error overrides, set in tests to simulate failure paths.
	RecordErr error
	ListErr   error
}

func NewMemoryOutcomeRepository(capacity int) *MemoryOutcomeRepository {
	if capacity < 1 {
		capacity = 10000
	}
	return &MemoryOutcomeRepository{capacity: capacity}
}

func (m *MemoryOutcomeRepository) Record(_ context.Context, o *domain.Outcome) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *o
	m.outcomes = append(m.outcomes, &clone)
	if over := len(m.outcomes) - m.capacity; over > 0 {
		m.outcomes = append(m.outcomes[:0:0], m.outcomes[over:]...)
	}
	return nil
}

// List returns matching outcomes newest first.
func (m *MemoryOutcomeRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.Outcome, int, error) {
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Outcome
	for _, o := range m.outcomes {
		if matches(o, f) {
			clone := *o
			matched = append(matched, &clone)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].FinishedAt.After(matched[j].FinishedAt)
	})

	total := len(matched)
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = domain.DefaultListLimit
	}
	start := (page - 1) * limit
	if start >= total {
		return []*domain.Outcome{}, total, nil
	}
	end := min(start+limit, total)
	return matched[start:end], total, nil
}

func matches(o *domain.Outcome, f domain.ListFilter) bool {
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.Topic != nil && o.Topic != *f.Topic {
		return false
	}
	if f.From != nil && o.FinishedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.FinishedAt.After(*f.To) {
		return false
	}
	return true
}

var _ OutcomeRepository = (*MemoryOutcomeRepository)(nil)
