package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/queue"
	"github.com/notifyhub/jobqueue/internal/repository"
)

// TaskService sits between the HTTP layer and the queue manager.
// Validation, id generation and batch limits live here.
type TaskService struct {
	q      *queue.Manager[domain.Task]
	repo   repository.OutcomeRepository
	logger *zap.Logger
}

func NewTaskService(
	q *queue.Manager[domain.Task],
	repo repository.OutcomeRepository,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{q: q, repo: repo, logger: logger}
}

// BatchRejection reports a batch entry that passed validation but could not
// be enqueued.
type BatchRejection struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchResult lists what a batch submission enqueued and what it did not.
type BatchResult struct {
	Accepted []*queue.Item[domain.Task] `json:"accepted"`
	Rejected []BatchRejection           `json:"rejected"`
}

// Submit validates and enqueues a single task. An omitted id is generated.
func (s *TaskService) Submit(_ context.Context, req domain.SubmitTaskRequest) (*queue.Item[domain.Task], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.enqueue(req)
}

// SubmitBatch validates every request first and enqueues nothing if any is
// invalid. Id conflicts found while enqueueing only reject that entry.
func (s *TaskService) SubmitBatch(_ context.Context, reqs []domain.SubmitTaskRequest) (*BatchResult, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrBatchEmpty
	}
	if len(reqs) > domain.MaxBatchSize {
		return nil, domain.ErrBatchTooLarge
	}

	seen := make(map[string]int, len(reqs))
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if id := reqs[i].ID; id != "" {
			if first, dup := seen[id]; dup {
				return nil, fmt.Errorf("item %d: %w: repeats item %d", i, domain.ErrConflict, first)
			}
			seen[id] = i
		}
	}

	result := &BatchResult{
		Accepted: make([]*queue.Item[domain.Task], 0, len(reqs)),
		Rejected: []BatchRejection{},
	}
	for i, req := range reqs {
		item, err := s.enqueue(req)
		if err != nil {
			result.Rejected = append(result.Rejected, BatchRejection{Index: i, ID: req.ID, Error: err.Error()})
			continue
		}
		result.Accepted = append(result.Accepted, item)
	}

	s.logger.Info("batch submitted",
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// Get returns a snapshot of a tracked task.
func (s *TaskService) Get(_ context.Context, id string) (*queue.Item[domain.Task], error) {
	item := s.q.GetItem(id)
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// Cancel removes a task wherever it is. A task that is already running
// finishes, but its outcome no longer updates the queue.
func (s *TaskService) Cancel(_ context.Context, id string) error {
	if !s.q.Dequeue(id) {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TaskService) Stats() queue.Stats { return s.q.Stats() }

func (s *TaskService) Pause() queue.Stats {
	s.q.Pause()
	return s.q.Stats()
}

func (s *TaskService) Resume() queue.Stats {
	s.q.Resume()
	return s.q.Stats()
}

// ClearPending drops every pending task and reports how many were dropped.
func (s *TaskService) ClearPending() int { return s.q.Clear() }

func (s *TaskService) Outcomes(ctx context.Context, filter domain.ListFilter) ([]*domain.Outcome, int, error) {
	return s.repo.List(ctx, filter)
}

// ---- private helpers ----

func (s *TaskService) enqueue(req domain.SubmitTaskRequest) (*queue.Item[domain.Task], error) {
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	item, err := s.q.Enqueue(id, req.Task(id), req.Priority)
	if errors.Is(err, queue.ErrDuplicateID) {
		return nil, fmt.Errorf("%w: %q", domain.ErrConflict, id)
	}
	if err != nil {
		return nil, fmt.Errorf("enqueue task: %w", err)
	}
	return item, nil
}
