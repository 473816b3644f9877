package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mmatheygr/lead-scoring/internal/adapters/http/api"
	"github.com/mmatheygr/lead-scoring/internal/adapters/http/site"
	"github.com/mmatheygr/lead-scoring/internal/adapters/http/swagger"
	"github.com/mmatheygr/lead-scoring/internal/adapters/repository"
	"github.com/mmatheygr/lead-scoring/internal/app"
	"github.com/mmatheygr/lead-scoring/internal/config"
	"github.com/mmatheygr/lead-scoring/internal/domain/scoring"
	"github.com/mmatheygr/lead-scoring/pkg/logger"
	"github.com/mmatheygr/lead-scoring/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 5 * time.Minute // scoring blocks until the batch drains
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	sentryFlushTimeout        = 2 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	// We collect our own custom system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Warn(ctx, "sentry init failed", logger.Error(err))
		} else {
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	scorer, closeScorer, err := buildScorer(cfg)
	if err != nil {
		log.Error(ctx, "failed to build scorer", logger.Error(err))
		return
	}
	if closeScorer != nil {
		defer func() {
			if err := closeScorer.Close(); err != nil {
				log.Warn(ctx, "closing scorer", logger.Error(err))
			}
		}()
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to build ranking store", logger.Error(err))
		return
	}
	if closeStore != nil {
		defer func() {
			if err := closeStore.Close(); err != nil {
				log.Warn(ctx, "closing ranking store", logger.Error(err))
			}
		}()
	}

	// Create and start the service with configuration options.
	svc := app.New(
		app.WithLogger(log),
		app.WithScorer(scorer),
		app.WithStore(store),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.JobQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithBatchTTL(time.Duration(cfg.BatchTTLSeconds)*time.Second),
		app.WithDefaultThreshold(cfg.DefaultThreshold),
		app.WithMaxScoresLimit(cfg.MaxScoresLimit),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	// Background metric refreshers.
	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Embedded upload UI at / and API docs at /api-docs.
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc,
		api.WithFeatureColumns(cfg.FeatureColumns),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithMaxUploadRows(cfg.MaxUploadRows),
		api.WithMaxScoresLimit(cfg.MaxScoresLimit),
		api.WithUploadRatePerMinute(cfg.UploadRatePerMinute),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sentry.CaptureException(err)
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildScorer constructs the classifier named in the config. The second
// return value is non-nil when the scorer holds resources to release.
func buildScorer(cfg *config.Config) (scoring.Scorer, io.Closer, error) {
	switch cfg.Scorer {
	case config.ScorerONNX:
		s, err := scoring.NewONNXScorer(cfg.ModelPath, cfg.FeatureColumns,
			scoring.WithLibraryPath(cfg.ONNXLibraryPath),
			scoring.WithTensorNames(cfg.ModelInputName, cfg.ModelOutputName),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return scoring.NewLogisticScorer(scoring.WithWeights(cfg.FeatureWeights, cfg.Bias)), nil, nil
	}
}

// buildStore constructs the ranking store named in the config.
func buildStore(ctx context.Context, cfg *config.Config) (repository.Store, io.Closer, error) {
	switch cfg.RankingStore {
	case config.StoreRedis:
		s, err := repository.NewRedisStore(ctx, cfg.RedisAddr,
			repository.WithBatchTTL(time.Duration(cfg.BatchTTLSeconds)*time.Second),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return repository.NewTreapStore(ctx), nil, nil
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that refreshes
// pipeline gauges from the service.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes active batch and lead gauges as a side effect.
			if _, err := svc.GetStats(ctx); err != nil {
				logger.Get().Warn(ctx, "refreshing service metrics", logger.Error(err))
			}
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
