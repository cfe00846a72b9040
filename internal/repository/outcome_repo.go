package repository

import (
	"context"

	"github.com/notifyhub/jobqueue/internal/domain"
)

// OutcomeRepository stores the terminal result of every task. It is an
// audit trail only; the queue never reads it back.
// The pgx implementation is in pg_outcome_repo.go; memory_outcome_repo.go
// serves deployments without a database and unit tests.
type OutcomeRepository interface {
	Record(ctx context.Context, o *domain.Outcome) error
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Outcome, int, error)
}
