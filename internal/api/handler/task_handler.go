package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/jobqueue/internal/api/middleware"
	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/service"
)

// TaskHandler handles single-task endpoints.
type TaskHandler struct {
	svc    *service.TaskService
	logger *zap.Logger
}

func NewTaskHandler(svc *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

// Submit handles POST /api/v1/tasks
//
// @Summary     Submit a task
// @Tags        tasks
// @Accept      json
// @Produce     json
// @Param       body  body      domain.SubmitTaskRequest  true  "Task"
// @Success     201   {object}  queue.Item
// @Failure     409   {object}  map[string]string
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/tasks [post]
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.logger.Warn("submit task failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// Get handles GET /api/v1/tasks/{id}
//
// @Summary  Get a task by ID
// @Tags     tasks
// @Produce  json
// @Param    id   path      string  true  "Task ID"
// @Success  200  {object}  queue.Item
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/tasks/{id} [get]
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Cancel handles DELETE /api/v1/tasks/{id}
//
// @Summary  Remove a task from the queue
// @Tags     tasks
// @Param    id   path      string  true  "Task ID"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/tasks/{id} [delete]
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
