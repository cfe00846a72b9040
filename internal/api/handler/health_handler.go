package handler

import (
	"net/http"
	"time"

	"github.com/notifyhub/jobqueue/internal/service"
)

// HealthHandler serves the liveness probe endpoint.
type HealthHandler struct {
	queue   service.StatsSource
	started time.Time
}

func NewHealthHandler(queue service.StatsSource) *HealthHandler {
	return &HealthHandler{queue: queue, started: time.Now()}
}

// Health handles GET /health
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	s := h.queue.Stats()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"queue_paused":   s.Paused,
		"queue_pending":  s.Pending,
	})
}
