package handler

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/service"
)

// OutcomeHandler lists the outcome history.
type OutcomeHandler struct {
	svc    *service.TaskService
	logger *zap.Logger
}

func NewOutcomeHandler(svc *service.TaskService, logger *zap.Logger) *OutcomeHandler {
	return &OutcomeHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/outcomes
//
// @Summary  List task outcomes with filtering and pagination
// @Tags     outcomes
// @Produce  json
// @Param    status  query     string  false  "completed or failed"
// @Param    topic   query     string  false  "Filter by topic"
// @Param    from    query     string  false  "Finished after (RFC3339)"
// @Param    to      query     string  false  "Finished before (RFC3339)"
// @Param    page    query     int     false  "Page number (default 1)"
// @Param    limit   query     int     false  "Items per page (default 20, max 100)"
// @Success  200     {object}  map[string]any
// @Router   /api/v1/outcomes [get]
func (h *OutcomeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcomes, total, err := h.svc.Outcomes(r.Context(), filter)
	if err != nil {
		h.logger.Error("list outcomes failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list outcomes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  outcomes,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

type badQueryError string

func (e badQueryError) Error() string { return string(e) }

func parseListFilter(r *http.Request) (domain.ListFilter, error) {
	q := r.URL.Query()
	filter := domain.ListFilter{Page: 1, Limit: domain.DefaultListLimit}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= domain.MaxListLimit {
		filter.Limit = l
	}
	if s := q.Get("status"); s != "" {
		st := domain.OutcomeStatus(s)
		if !st.IsValid() {
			return filter, badQueryError("status must be completed or failed")
		}
		filter.Status = &st
	}
	if topic := q.Get("topic"); topic != "" {
		filter.Topic = &topic
	}
	if f := q.Get("from"); f != "" {
		t, err := time.Parse(time.RFC3339, f)
		if err != nil {
			return filter, badQueryError("from must be RFC3339")
		}
		filter.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, badQueryError("to must be RFC3339")
		}
		filter.To = &t
	}
	return filter, nil
}
