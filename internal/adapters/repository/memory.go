package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/pkg/metrics"
)

// MemoryStore keeps encoded reports in a map. Reports are stored in their
// encoded form so callers never share mutable state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string][]byte
	closed  bool

	metricsUpdateInterval time.Duration
	stop                  chan struct{}
	wg                    sync.WaitGroup
}

// NewMemoryStore creates an in-memory store and starts its metrics loop.
func NewMemoryStore(opts ...Option) *MemoryStore {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &MemoryStore{
		reports:               make(map[string][]byte),
		metricsUpdateInterval: cfg.metricsUpdateInterval,
		stop:                  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.metricsLoop()
	return s
}

func (s *MemoryStore) metricsLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			metrics.UpdateStoreRecords(s.Count(context.Background()))
		}
	}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, r *model.SearchReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r == nil || r.ID == "" {
		return ErrInvalidID
	}
	value, err := encodeReport(r)
	if err != nil {
		metrics.RecordStoreOperation("save", "error")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.reports[r.ID] = value
	metrics.RecordStoreOperation("save", "ok")
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.SearchReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	value, ok := s.reports[id]
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !ok {
		metrics.RecordStoreOperation("get", "not_found")
		return nil, ErrNotFound
	}
	metrics.RecordStoreOperation("get", "ok")
	return decodeReport(value)
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.reports, id)
	metrics.RecordStoreOperation("delete", "ok")
	return nil
}

// Purge implements Store.
func (s *MemoryStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	removed := 0
	for id, value := range s.reports {
		if stamp, ok := stampOf(value); ok && stamp.Before(cutoff) {
			delete(s.reports, id)
			removed++
		}
	}
	metrics.RecordStoreOperation("purge", "ok")
	return removed, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Close stops the metrics loop. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
	return nil
}
