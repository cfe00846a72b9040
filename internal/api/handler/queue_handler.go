package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/queue"
	"github.com/notifyhub/jobqueue/internal/service"
)

// QueueHandler exposes queue-wide controls and a JSON stats snapshot.
// Raw Prometheus metrics are served separately at /metrics.
type QueueHandler struct {
	svc    *service.TaskService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.TaskService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// Stats handles GET /api/v1/queue/stats
//
// @Summary  Queue stats snapshot
// @Tags     queue
// @Produce  json
// @Success  200  {object}  domain.QueueStats
// @Router   /api/v1/queue/stats [get]
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statsView(h.svc.Stats()))
}

// Pause handles POST /api/v1/queue/pause
func (h *QueueHandler) Pause(w http.ResponseWriter, r *http.Request) {
	s := h.svc.Pause()
	h.logger.Info("queue paused via API")
	respondJSON(w, http.StatusOK, statsView(s))
}

// Resume handles POST /api/v1/queue/resume
func (h *QueueHandler) Resume(w http.ResponseWriter, r *http.Request) {
	s := h.svc.Resume()
	h.logger.Info("queue resumed via API")
	respondJSON(w, http.StatusOK, statsView(s))
}

// ClearPending handles DELETE /api/v1/queue/pending
//
// @Summary  Drop every pending task
// @Tags     queue
// @Produce  json
// @Success  200  {object}  map[string]int
// @Router   /api/v1/queue/pending [delete]
func (h *QueueHandler) ClearPending(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"cleared": h.svc.ClearPending()})
}

func statsView(s queue.Stats) domain.QueueStats {
	return domain.QueueStats{
		Pending:          s.Pending,
		Processing:       s.Processing,
		Completed:        s.Completed,
		Failed:           s.Failed,
		Retry:            s.Retry,
		Delayed:          s.Delayed,
		Total:            s.Total,
		Paused:           s.Paused,
		AverageWaitMS:    float64(s.AverageWaitTime.Microseconds()) / 1000,
		AverageProcessMS: float64(s.AverageProcessTime.Microseconds()) / 1000,
	}
}
