package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/jobqueue/internal/api/middleware"
	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/service"
)

// BatchHandler handles batch submission.
type BatchHandler struct {
	svc    *service.TaskService
	logger *zap.Logger
}

func NewBatchHandler(svc *service.TaskService, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{svc: svc, logger: logger}
}

// SubmitBatch handles POST /api/v1/tasks/batch
//
// @Summary     Submit up to 1000 tasks
// @Tags        tasks
// @Accept      json
// @Produce     json
// @Param       body  body      domain.SubmitBatchRequest  true  "Tasks"
// @Success     201   {object}  service.BatchResult
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/tasks/batch [post]
func (h *BatchHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.svc.SubmitBatch(r.Context(), req.Tasks)
	if err != nil {
		h.logger.Warn("submit batch failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Int("size", len(req.Tasks)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}
