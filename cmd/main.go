package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/seisnear/internal/adapters/fdsn"
	"github.com/okian/seisnear/internal/adapters/http/api"
	"github.com/okian/seisnear/internal/adapters/http/swagger"
	"github.com/okian/seisnear/internal/adapters/repository"
	app "github.com/okian/seisnear/internal/app"
	"github.com/okian/seisnear/internal/config"
	"github.com/okian/seisnear/internal/domain/catalog"
	"github.com/okian/seisnear/internal/domain/discovery"
	"github.com/okian/seisnear/pkg/logger"
	"github.com/okian/seisnear/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 5 * time.Minute // synchronous searches may escalate several times
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWith(logger.Options{Format: cfg.LogFormat}); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	client := fdsn.New(
		fdsn.WithEventServiceURL(cfg.EventServiceURL),
		fdsn.WithStationServiceURL(cfg.StationServiceURL),
		fdsn.WithTimeout(cfg.CatalogTimeout()),
		fdsn.WithRateLimit(cfg.CatalogRateLimit, cfg.CatalogRateBurst),
	)

	svc, err := newService(ctx, cfg, client, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := newHTTPServer(cfg, svc)

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newService builds the discovery engine and the service around client.
func newService(ctx context.Context, cfg *config.Config, client catalog.Client, log logger.Logger) (*app.Service, error) {
	finder, err := discovery.NewEventFinder(client,
		discovery.WithEventLimit(cfg.EventLimit),
		discovery.WithWindow(cfg.WindowLead(), cfg.WindowTail()),
		discovery.WithDedupeSize(cfg.DedupeSize),
	)
	if err != nil {
		return nil, err
	}

	coord, err := discovery.New(client,
		discovery.WithK(cfg.TopK),
		discovery.WithApprovedChannels(cfg.ApprovedChannels...),
		discovery.WithApprovedNetworks(cfg.ApprovedNetworks...),
		discovery.WithMaxChannelsPerStation(cfg.MaxChannelsPerStation),
		discovery.WithMaxProducers(cfg.MaxProducers),
		discovery.WithProducerTimeout(cfg.ProducerTimeout()),
	)
	if err != nil {
		return nil, err
	}

	policy, err := discovery.NewPolicy(coord,
		discovery.WithMaxAttempts(cfg.MaxAttempts),
		discovery.WithRadiusMultiplier(cfg.RadiusMultiplier),
	)
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	if cfg.StorePath != "" {
		log.Info(ctx, "using pebble report store", logger.String("path", cfg.StorePath))
	}

	svc, err := app.New(finder, policy,
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithStore(store),
		app.WithRetention(cfg.ResultRetention()),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}

// newHTTPServer registers the API and documentation routes for svc.
func newHTTPServer(cfg *config.Config, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(mux)
	swagger.Register(context.Background(), mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
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

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
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

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if reports, ok := stats["reports"].(int); ok {
		metrics.UpdateStoreRecords(reports)
	}
	if workerCount, ok := stats["workerCount"].(int); ok && stats["started"] == true {
		metrics.UpdateWorkerCount(workerCount)
	}
}
