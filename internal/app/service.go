// Package service runs seismic station searches: it finds the events around
// a search origin, discovers the nearest stations for each of them and keeps
// the resulting reports for later retrieval.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/okian/seisnear/internal/adapters/mq/queue"
	"github.com/okian/seisnear/internal/adapters/mq/worker"
	"github.com/okian/seisnear/internal/adapters/repository"
	"github.com/okian/seisnear/internal/domain/discovery"
	"github.com/okian/seisnear/internal/domain/geo"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/pkg/logger"
)

// Defaults for a Service.
const (
	DefaultQueueSize     = 1024
	DefaultRetention     = time.Hour
	maxRadiusDegrees     = 180
	minPurgeInterval     = time.Minute
	defaultStopTimeout   = 30 * time.Second
	defaultPurgeFraction = 4
)

// Service implements the API dependencies for station searches.
type Service struct {
	mu sync.RWMutex

	// Core components
	finder *discovery.EventFinder
	policy *discovery.Policy
	store  repository.Store
	queue  *queue.InMemoryQueue
	pool   *worker.Pool

	// Configuration
	workerCount   int
	queueSize     int
	retention     time.Duration
	purgeInterval time.Duration

	// State
	started   bool
	startedAt time.Time
	stopCh    chan struct{}
	purgeDone chan struct{}

	searches      atomic.Int64
	failed        atomic.Int64
	backpressured atomic.Int64
	purged        atomic.Int64

	logger logger.Logger
}

// New constructs a Service around an event finder and a discovery policy.
func New(finder *discovery.EventFinder, policy *discovery.Policy, opts ...Option) (*Service, error) {
	if finder == nil || policy == nil {
		return nil, ErrMissingEngine
	}
	s := &Service{
		finder:      finder,
		policy:      policy,
		workerCount: runtime.NumCPU(),
		queueSize:   DefaultQueueSize,
		retention:   DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.purgeInterval == 0 {
		s.purgeInterval = max(s.retention/defaultPurgeFraction, minPurgeInterval)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s, nil
}

// Start creates the queue and worker pool and starts the purge loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory report store")
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.RunnerFunc(s.runJob))
	s.pool.Start(ctx)

	s.stopCh = make(chan struct{})
	s.purgeDone = make(chan struct{})
	go s.purgeLoop(s.stopCh, s.purgeDone)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "search service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("retention", s.retention),
	)
	return nil
}

// Stop drains the worker pool, stops the purge loop and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, store, stopCh, purgeDone := s.pool, s.store, s.stopCh, s.purgeDone
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping search service...")

	// Workers still save results while draining, so no lock is held here.
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(err))
	}

	close(stopCh)
	<-purgeDone

	if err := store.Close(); err != nil {
		s.logger.Warn(ctx, "failed to close report store", logger.Error(err))
	}
	s.logger.Info(ctx, "search service stopped")
}

// ValidateRequest checks that req can be searched.
func ValidateRequest(req model.SearchRequest) error { //nolint:gocritic // request is a value type
	switch {
	case !geo.ValidCoordinates(req.Origin):
		return fmt.Errorf("%w: origin %v is not a valid position", ErrInvalidRequest, req.Origin)
	case !(req.Radius > 0) || req.Radius > maxRadiusDegrees:
		return fmt.Errorf("%w: radius must be in (0, %d] degrees", ErrInvalidRequest, maxRadiusDegrees)
	case math.IsNaN(req.StationRadius) || req.StationRadius < 0 || req.StationRadius > maxRadiusDegrees:
		return fmt.Errorf("%w: station radius must be in [0, %d] degrees", ErrInvalidRequest, maxRadiusDegrees)
	case !req.Start.IsZero() && !req.End.IsZero() && req.End.Before(req.Start):
		return fmt.Errorf("%w: end date is before start date", ErrInvalidRequest)
	case math.IsNaN(req.MinMagnitude):
		return fmt.Errorf("%w: magnitude is not a number", ErrInvalidRequest)
	case req.Limit < 0:
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Search runs a search synchronously and stores its report. Failures are
// described by the report rather than returned.
func (s *Service) Search(ctx context.Context, req model.SearchRequest) model.SearchReport { //nolint:gocritic // request is a value type
	now := time.Now().UTC()
	report := &model.SearchReport{
		ID:        uuid.NewString(),
		Status:    model.StatusRunning,
		Request:   req,
		Stations:  map[int64][]model.Candidate{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ValidateRequest(req); err != nil {
		s.fail(report, model.OutcomeFailed, err)
		return *report
	}

	s.execute(ctx, report)
	s.save(ctx, report)
	return *report
}

// Submit stores a pending report and queues the search for the worker pool.
// It returns ErrBackpressure when the queue is full.
func (s *Service) Submit(ctx context.Context, req model.SearchRequest) (string, error) { //nolint:gocritic // request is a value type
	if err := ValidateRequest(req); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}

	now := time.Now().UTC()
	report := &model.SearchReport{
		ID:        uuid.NewString(),
		Status:    model.StatusPending,
		Request:   req,
		Stations:  map[int64][]model.Candidate{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, report); err != nil {
		return "", fmt.Errorf("store pending report: %w", err)
	}

	err := s.queue.Enqueue(ctx, queue.Job{ID: report.ID, Request: req, EnqueuedAt: now})
	switch {
	case err == nil:
		s.logger.Debug(ctx, "search queued", logger.String("session", report.ID))
		return report.ID, nil
	case errors.Is(err, queue.ErrFull):
		s.backpressured.Add(1)
		s.discard(ctx, report.ID)
		return "", ErrBackpressure
	case errors.Is(err, queue.ErrClosed):
		s.discard(ctx, report.ID)
		return "", ErrNotStarted
	default:
		s.discard(ctx, report.ID)
		return "", err
	}
}

// Report returns the stored report for id.
func (s *Service) Report(ctx context.Context, id string) (*model.SearchReport, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return nil, ErrNotStarted
	}

	r, err := store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return r, err
}

// runJob is the worker pool's Runner: it executes a queued search and
// replaces the pending report with the result.
func (s *Service) runJob(ctx context.Context, j worker.Job) error { //nolint:gocritic // passed by value for channel semantics
	report, err := s.store.Get(ctx, j.ID)
	if err != nil {
		// Purged or never stored; run the search anyway so the result is kept.
		report = &model.SearchReport{ID: j.ID, Request: j.Request, CreatedAt: j.EnqueuedAt.UTC()}
	}
	report.Status = model.StatusRunning
	report.UpdatedAt = time.Now().UTC()
	s.save(ctx, report)

	s.execute(ctx, report)
	s.save(ctx, report)
	if report.Status == model.StatusFailed {
		return fmt.Errorf("%w: %s", ErrSearchFailed, report.Error)
	}
	return nil
}

// execute fills report with the events around the request origin and the
// nearest stations of each event.
func (s *Service) execute(ctx context.Context, report *model.SearchReport) {
	s.searches.Add(1)
	ctx = discovery.WithSession(ctx, report.ID)
	req := report.Request

	reg, err := s.finder.Find(ctx, req)
	if err != nil {
		s.logger.Error(ctx, "event discovery failed",
			logger.String("session", report.ID),
			logger.Error(err))
		s.fail(report, model.OutcomeFailed, err)
		return
	}

	res := s.policy.Discover(ctx, req.Origin, reg, req.EffectiveStationRadius())
	report.Events = reg.Events()
	report.Stations = res.Stations
	report.Outcome = res.Outcome
	report.Attempts = res.Attempts
	report.Radius = res.Radius
	report.Degraded = res.Degraded
	report.TimedOutNetworks = res.TimedOutNetworks
	report.UpdatedAt = time.Now().UTC()

	if res.Outcome == model.OutcomeFailed {
		s.fail(report, res.Outcome, res.Err)
		return
	}
	report.Status = model.StatusDone
	s.logger.Info(ctx, "search finished",
		logger.String("session", report.ID),
		logger.String("outcome", string(report.Outcome)),
		logger.Int("events", len(report.Events)),
		logger.Int("stations", report.StationCount()),
		logger.Int("attempts", report.Attempts),
		logger.Bool("degraded", report.Degraded),
	)
}

func (s *Service) fail(report *model.SearchReport, outcome model.Outcome, err error) {
	s.failed.Add(1)
	report.Status = model.StatusFailed
	report.Outcome = outcome
	if err != nil {
		report.Error = err.Error()
	}
	report.UpdatedAt = time.Now().UTC()
}

func (s *Service) save(ctx context.Context, report *model.SearchReport) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return
	}
	if err := store.Save(ctx, report); err != nil {
		s.logger.Error(ctx, "failed to store search report",
			logger.String("session", report.ID),
			logger.Error(err))
	}
}

func (s *Service) discard(ctx context.Context, id string) {
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warn(ctx, "failed to drop rejected report", logger.String("session", id), logger.Error(err))
	}
}

// purgeLoop removes expired reports until stop is closed.
func (s *Service) purgeLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if s.retention <= 0 {
		<-stop
		return
	}
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.PurgeExpired(context.Background())
		}
	}
}

// PurgeExpired removes reports older than the retention and returns how many
// were removed.
func (s *Service) PurgeExpired(ctx context.Context) int {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if s.retention <= 0 || store == nil {
		return 0
	}
	n, err := store.Purge(ctx, time.Now().Add(-s.retention))
	if err != nil {
		s.logger.Warn(ctx, "report purge failed", logger.Error(err))
	}
	if n > 0 {
		s.purged.Add(int64(n))
		s.logger.Info(ctx, "purged expired reports", logger.Int("count", n))
	}
	return n
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"retention":      s.retention.String(),
		"searches":       s.searches.Load(),
		"searchesFailed": s.failed.Load(),
		"backpressured":  s.backpressured.Load(),
		"reportsPurged":  s.purged.Load(),
	}

	if s.started {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		reports := s.store.Count(ctx)
		stats["queueLength"] = s.queue.Len()
		stats["reports"] = reports
		stats["reportsHuman"] = humanize.Comma(int64(reports))
		stats["startedAt"] = s.startedAt.UTC()
		stats["startedAgo"] = humanize.Time(s.startedAt)
		stats["heapAlloc"] = humanize.IBytes(mem.HeapAlloc)
	}

	return stats
}
