package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/jobqueue/internal/domain"
)

type pgOutcomeRepository struct {
	pool *pgxpool.Pool
}

// NewPgOutcomeRepository returns an OutcomeRepository backed by PostgreSQL.
func NewPgOutcomeRepository(pool *pgxpool.Pool) OutcomeRepository {
	return &pgOutcomeRepository{pool: pool}
}

func (r *pgOutcomeRepository) Record(ctx context.Context, o *domain.Outcome) error {
	var errMsg *string
	if o.Error != "" {
		errMsg = &o.Error
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO task_outcomes
			(task_id, topic, priority, status, attempts, error_message, duration_ms, added_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.TaskID, o.Topic, o.Priority, o.Status, o.Attempts, errMsg, o.DurationMS, o.AddedAt, o.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (r *pgOutcomeRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Outcome, int, error) {
	where, args := buildListWhere(f)

	var total int
	countQuery := "SELECT COUNT(*) FROM task_outcomes" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count outcomes: %w", err)
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = domain.DefaultListLimit
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT task_id, topic, priority, status, attempts, error_message,
		       duration_ms, added_at, finished_at
		FROM task_outcomes%s
		ORDER BY finished_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	outcomes, err := scanOutcomes(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan outcomes: %w", err)
	}
	return outcomes, total, nil
}

// ---- helpers ----

func scanOutcome(row pgx.Row) (*domain.Outcome, error) {
	var (
		o      domain.Outcome
		errMsg *string
	)
	err := row.Scan(
		&o.TaskID, &o.Topic, &o.Priority, &o.Status, &o.Attempts, &errMsg,
		&o.DurationMS, &o.AddedAt, &o.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		o.Error = *errMsg
	}
	return &o, nil
}

func scanOutcomes(rows pgx.Rows) ([]*domain.Outcome, error) {
	result := []*domain.Outcome{}
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// buildListWhere builds a parameterised WHERE clause from a ListFilter.
func buildListWhere(f domain.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.Topic != nil {
		add("topic = $%d", *f.Topic)
	}
	if f.From != nil {
		add("finished_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("finished_at <= $%d", *f.To)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
