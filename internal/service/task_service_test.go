package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/queue"
	"github.com/notifyhub/jobqueue/internal/repository"
	"github.com/notifyhub/jobqueue/internal/service"
)

// newService returns a service over a paused, never-started queue so tasks
// stay pending for inspection.
func newService() (*service.TaskService, *queue.Manager[domain.Task], *repository.MemoryOutcomeRepository) {
	opts := queue.DefaultOptions()
	opts.Paused = true
	q := queue.NewManager(func(context.Context, domain.Task) (any, error) { return nil, nil },
		opts, zap.NewNop(), queue.Dependencies[domain.Task]{})
	repo := repository.NewMemoryOutcomeRepository(0)
	return service.NewTaskService(q, repo, zap.NewNop()), q, repo
}

var validReq = domain.SubmitTaskRequest{
	Topic:    "invoices",
	Payload:  json.RawMessage(`{"invoice":1}`),
	Priority: 2,
}

func TestTaskService_Submit(t *testing.T) {
	svc, q, _ := newService()
	ctx := context.Background()

	item, err := svc.Submit(ctx, validReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected a generated ID")
	}
	if item.Data.ID != item.ID || item.Data.Topic != "invoices" {
		t.Fatalf("unexpected task data: %+v", item.Data)
	}
	if item.Status != queue.StatusPending || item.Priority != 2 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if q.Stats().Pending != 1 {
		t.Fatal("expected the task to be pending")
	}
}

func TestTaskService_Submit_ExplicitIDConflict(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	req := validReq
	req.ID = "task-1"
	if _, err := svc.Submit(ctx, req); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.Submit(ctx, req)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTaskService_Submit_InvalidRequest(t *testing.T) {
	svc, q, _ := newService()

	bad := validReq
	bad.Topic = ""
	_, err := svc.Submit(context.Background(), bad)
	if err != domain.ErrInvalidTopic {
		t.Fatalf("expected ErrInvalidTopic, got %v", err)
	}
	if q.Stats().Total != 0 {
		t.Fatal("invalid request must not be enqueued")
	}
}

func TestTaskService_SubmitBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty batch", func(t *testing.T) {
		svc, _, _ := newService()
		if _, err := svc.SubmitBatch(ctx, nil); err != domain.ErrBatchEmpty {
			t.Fatalf("expected ErrBatchEmpty, got %v", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		svc, _, _ := newService()
		reqs := make([]domain.SubmitTaskRequest, domain.MaxBatchSize+1)
		if _, err := svc.SubmitBatch(ctx, reqs); err != domain.ErrBatchTooLarge {
			t.Fatalf("expected ErrBatchTooLarge, got %v", err)
		}
	})

	t.Run("one invalid entry rejects the whole batch", func(t *testing.T) {
		svc, q, _ := newService()
		bad := validReq
		bad.Payload = json.RawMessage(`{`)
		_, err := svc.SubmitBatch(ctx, []domain.SubmitTaskRequest{validReq, bad})
		if !errors.Is(err, domain.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
		if q.Stats().Total != 0 {
			t.Fatal("nothing should be enqueued")
		}
	})

	t.Run("repeated id inside the batch", func(t *testing.T) {
		svc, _, _ := newService()
		a := validReq
		a.ID = "same"
		_, err := svc.SubmitBatch(ctx, []domain.SubmitTaskRequest{a, a})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("conflict with a queued task rejects only that entry", func(t *testing.T) {
		svc, q, _ := newService()
		existing := validReq
		existing.ID = "taken"
		_, _ = svc.Submit(ctx, existing)

		reqs := make([]domain.SubmitTaskRequest, 3)
		for i := range reqs {
			reqs[i] = validReq
			reqs[i].ID = "batch-" + strconv.Itoa(i)
		}
		reqs[1].ID = "taken"

		res, err := svc.SubmitBatch(ctx, reqs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Accepted) != 2 || len(res.Rejected) != 1 {
			t.Fatalf("accepted=%d rejected=%d", len(res.Accepted), len(res.Rejected))
		}
		if res.Rejected[0].Index != 1 || res.Rejected[0].ID != "taken" {
			t.Fatalf("unexpected rejection: %+v", res.Rejected[0])
		}
		if q.Stats().Pending != 3 {
			t.Fatalf("Pending = %d, want 3", q.Stats().Pending)
		}
	})
}

func TestTaskService_GetAndCancel(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	if _, err := svc.Get(ctx, "missing"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Cancel(ctx, "missing"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	item, _ := svc.Submit(ctx, validReq)
	got, err := svc.Get(ctx, item.ID)
	if err != nil || got.ID != item.ID {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if err := svc.Cancel(ctx, item.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.Get(ctx, item.ID); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound after cancel, got %v", err)
	}
}

func TestTaskService_QueueControls(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	if s := svc.Resume(); s.Paused {
		t.Fatal("expected running after Resume")
	}
	if s := svc.Pause(); !s.Paused {
		t.Fatal("expected paused after Pause")
	}

	for i := 0; i < 3; i++ {
		_, _ = svc.Submit(ctx, validReq)
	}
	if n := svc.ClearPending(); n != 3 {
		t.Fatalf("ClearPending = %d, want 3", n)
	}
	if s := svc.Stats(); s.Pending != 0 {
		t.Fatalf("Pending = %d after clear", s.Pending)
	}
}

func TestTaskService_Outcomes(t *testing.T) {
	svc, _, repo := newService()
	ctx := context.Background()
	_ = repo.Record(ctx, &domain.Outcome{TaskID: "a", Status: domain.OutcomeCompleted})

	got, total, err := svc.Outcomes(ctx, domain.ListFilter{Page: 1, Limit: 10})
	if err != nil || total != 1 || got[0].TaskID != "a" {
		t.Fatalf("Outcomes = %v, %d, %v", got, total, err)
	}
}
