package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/provider"
	"github.com/notifyhub/jobqueue/internal/queue"
)

// Limiter throttles deliveries per topic.
type Limiter interface {
	Wait(ctx context.Context, topic string) error
}

// DeliveryJob builds the queue's job function: wait for the topic's rate
// limit, then hand the task to the provider. The provider's acknowledgement
// becomes the item's result.
func DeliveryJob(prov provider.Provider, limiter Limiter, logger *zap.Logger) queue.JobFunc[domain.Task] {
	return func(ctx context.Context, task domain.Task) (any, error) {
		if err := limiter.Wait(ctx, task.Topic); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := prov.Deliver(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("deliver task: %w", err)
		}

		logger.Debug("task delivered",
			zap.String("task_id", task.ID),
			zap.String("topic", task.Topic),
			zap.Int("status_code", resp.StatusCode),
		)
		return resp, nil
	}
}
