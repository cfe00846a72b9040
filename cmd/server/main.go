package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notifyhub/jobqueue/internal/api"
	"github.com/notifyhub/jobqueue/internal/config"
	"github.com/notifyhub/jobqueue/internal/db"
	"github.com/notifyhub/jobqueue/internal/domain"
	"github.com/notifyhub/jobqueue/internal/metrics"
	"github.com/notifyhub/jobqueue/internal/provider"
	"github.com/notifyhub/jobqueue/internal/queue"
	"github.com/notifyhub/jobqueue/internal/ratelimiter"
	"github.com/notifyhub/jobqueue/internal/repository"
	"github.com/notifyhub/jobqueue/internal/service"
	"github.com/notifyhub/jobqueue/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	queueOpts, err := cfg.QueueOptions()
	if err != nil {
		logger.Fatal("invalid queue options", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- outcome history ----
	var repo repository.OutcomeRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")
		repo = repository.NewPgOutcomeRepository(pool)
	} else {
		logger.Info("DATABASE_URL not set, keeping outcome history in memory")
		repo = repository.NewMemoryOutcomeRepository(0)
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	prov := provider.NewWebhookProvider(cfg.ProviderBaseURL, cfg.ProviderTimeout)
	limiter := ratelimiter.New(cfg.RateLimitPerTopic)
	job := service.DeliveryJob(prov, limiter, logger)

	q := queue.NewManager(job, queueOpts, logger.Named("queue"), queue.Dependencies[domain.Task]{})
	metrics.Subscribe(m, q, func(task domain.Task) string { return task.Topic })

	recorder := service.NewOutcomeRecorder(repo, cfg.RecorderBuffer, logger.Named("recorder"))
	recorder.Subscribe(q)

	reporter := worker.NewPeriodic("stats-reporter", cfg.StatsInterval,
		service.StatsReporter(q, m, logger.Named("stats")), logger)

	svc := service.NewTaskService(q, repo, logger)

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(svc, reg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Background work stops on its own context, cancelled only after the
	// HTTP server has drained, so in-flight requests can still enqueue.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	q.Start(workCtx)
	g.Go(func() error {
		q.Wait()
		return nil
	})
	g.Go(func() error {
		recorder.Run(workCtx, cfg.ShutdownTimeout)
		return nil
	})
	g.Go(func() error {
		reporter.Run(workCtx)
		return nil
	})

	// ---- graceful shutdown ----
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		// 1. Stop accepting new HTTP requests.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}

		// 2. Stop the dispatcher, the workers, the recorder and the reporter.
		cancelWork()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		logFinalStats(logger, q.Stats())
		os.Exit(1)
	}
	logFinalStats(logger, q.Stats())
	logger.Info("server stopped cleanly")
}

func logFinalStats(logger *zap.Logger, s queue.Stats) {
	logger.Info("final queue stats",
		zap.Int("pending", s.Pending),
		zap.Int("processing", s.Processing),
		zap.Int("completed", s.Completed),
		zap.Int("failed", s.Failed),
		zap.Duration("avg_process", s.AverageProcessTime.Round(time.Millisecond)),
	)
}
