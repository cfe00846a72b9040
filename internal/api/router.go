package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/jobqueue/internal/api/handler"
	apimw "github.com/notifyhub/jobqueue/internal/api/middleware"
	"github.com/notifyhub/jobqueue/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.TaskService,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(4 << 20)) // 4 MB max request body
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	th := handler.NewTaskHandler(svc, logger)
	bh := handler.NewBatchHandler(svc, logger)
	qh := handler.NewQueueHandler(svc, logger)
	oh := handler.NewOutcomeHandler(svc, logger)
	hh := handler.NewHealthHandler(svc)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// /batch is registered before /{id} so "batch" is never read as an id.
		r.Post("/tasks/batch", bh.SubmitBatch)
		r.Post("/tasks", th.Submit)
		r.Get("/tasks/{id}", th.Get)
		r.Delete("/tasks/{id}", th.Cancel)

		r.Get("/queue/stats", qh.Stats)
		r.Post("/queue/pause", qh.Pause)
		r.Post("/queue/resume", qh.Resume)
		r.Delete("/queue/pending", qh.ClearPending)

		r.Get("/outcomes", oh.List)
	})

	return r
}
