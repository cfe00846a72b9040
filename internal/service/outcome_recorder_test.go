package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/queue"
	"github.com/notifyhub/jobqueue/internal/repository"
	"github.com/notifyhub/jobqueue/internal/service"
)

func taskItem(id string) *queue.Item[domain.Task] {
	started := time.Now().Add(-50 * time.Millisecond)
	return &queue.Item[domain.Task]{
		ID:        id,
		Data:      domain.Task{ID: id, Topic: "mail"},
		Priority:  3,
		AddedAt:   started.Add(-time.Second),
		StartedAt: &started,
		Attempt:   1,
	}
}

// drain runs the recorder with an already cancelled context, which writes
// everything buffered and returns.
func drain(rec *service.OutcomeRecorder) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx, time.Second)
}

func TestOutcomeRecorder_RecordsTerminalEvents(t *testing.T) {
	repo := repository.NewMemoryOutcomeRepository(0)
	bus := queue.NewBus[domain.Task](zap.NewNop())
	rec := service.NewOutcomeRecorder(repo, 8, zap.NewNop())
	rec.Subscribe(bus)

	bus.Emit(queue.Event[domain.Task]{Type: queue.EventItemCompleted, Item: taskItem("ok"),
		Payload: queue.CompletedPayload{Duration: 10 * time.Millisecond}})
	bus.Emit(queue.Event[domain.Task]{Type: queue.EventItemFailed, Item: taskItem("bad"),
		Payload: queue.FailedPayload{Err: errors.New("gateway timeout")}})
	bus.Emit(queue.Event[domain.Task]{Type: queue.EventItemRetry, Item: taskItem("later")})
	drain(rec)

	got, total, err := repo.List(context.Background(), domain.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("recorded %d outcomes, want 2", total)
	}

	byID := map[string]*domain.Outcome{}
	for _, o := range got {
		byID[o.TaskID] = o
	}
	ok, bad := byID["ok"], byID["bad"]
	if ok == nil || ok.Status != domain.OutcomeCompleted || ok.Attempts != 2 || ok.Topic != "mail" || ok.Priority != 3 {
		t.Fatalf("unexpected completed outcome: %+v", ok)
	}
	if ok.DurationMS < 50 {
		t.Fatalf("DurationMS = %d, want >= 50", ok.DurationMS)
	}
	if bad == nil || bad.Status != domain.OutcomeFailed || bad.Error != "gateway timeout" {
		t.Fatalf("unexpected failed outcome: %+v", bad)
	}
}

func TestOutcomeRecorder_DropsWhenBufferFull(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	repo := repository.NewMemoryOutcomeRepository(0)
	bus := queue.NewBus[domain.Task](zap.NewNop())
	rec := service.NewOutcomeRecorder(repo, 1, zap.New(core))
	rec.Subscribe(bus)

	bus.Emit(queue.Event[domain.Task]{Type: queue.EventItemCompleted, Item: taskItem("a")})
	bus.Emit(queue.Event[domain.Task]{Type: queue.EventItemCompleted, Item: taskItem("b")})

	if logs.FilterMessage("outcome buffer full, dropping outcome").Len() != 1 {
		t.Fatal("expected one drop warning")
	}
	drain(rec)
	if _, total, _ := repo.List(context.Background(), domain.ListFilter{}); total != 1 {
		t.Fatalf("recorded %d outcomes, want 1", total)
	}
}

func TestOutcomeRecorder_RepositoryErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	repo := repository.NewMemoryOutcomeRepository(0)
	repo.RecordErr = errors.New("db down")
	bus := queue.NewBus[domain.Task](zap.NewNop())
	rec := service.NewOutcomeRecorder(repo, 4, zap.New(core))
	rec.Subscribe(bus)

	bus.Emit(queue.Event[domain.Task]{Type: queue.EventItemCompleted, Item: taskItem("a")})
	drain(rec)

	if logs.FilterMessage("failed to record outcome").Len() != 1 {
		t.Fatal("expected the repository error to be logged")
	}
}

func TestOutcomeRecorder_Unsubscribe(t *testing.T) {
	repo := repository.NewMemoryOutcomeRepository(0)
	bus := queue.NewBus[domain.Task](zap.NewNop())
	rec := service.NewOutcomeRecorder(repo, 4, zap.NewNop())
	rec.Subscribe(bus)
	rec.Subscribe(bus)
	rec.Unsubscribe(bus)

	bus.Emit(queue.Event[domain.Task]{Type: queue.EventItemCompleted, Item: taskItem("a")})
	drain(rec)
	if _, total, _ := repo.List(context.Background(), domain.ListFilter{}); total != 0 {
		t.Fatalf("recorded %d outcomes after unsubscribe", total)
	}
}

func TestOutcomeRecorder_WithQueue(t *testing.T) {
	repo := repository.NewMemoryOutcomeRepository(0)
	opts := queue.DefaultOptions()
	opts.MaxRetries = 0
	q := queue.NewManager(func(_ context.Context, task domain.Task) (any, error) {
		if task.Topic == "broken" {
			return nil, errors.New("nope")
		}
		return "ok", nil
	}, opts, zap.NewNop(), queue.Dependencies[domain.Task]{})

	rec := service.NewOutcomeRecorder(repo, 8, zap.NewNop())
	rec.Subscribe(q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx, time.Second)
		close(done)
	}()
	q.Start(ctx)
	t.Cleanup(func() {
		cancel()
		q.Wait()
		<-done
	})

	_, _ = q.Enqueue("a", domain.Task{ID: "a", Topic: "mail"}, 0)
	_, _ = q.Enqueue("b", domain.Task{ID: "b", Topic: "broken"}, 0)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, total, _ := repo.List(context.Background(), domain.ListFilter{}); total == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for both outcomes")
}
