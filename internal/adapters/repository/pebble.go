package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"

	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/pkg/metrics"
)

const reportPrefix = "r|"

var (
	reportLower = []byte(reportPrefix)
	reportUpper = []byte("r}") // '|'+1
)

func reportKey(id string) []byte {
	return []byte(reportPrefix + id)
}

// PebbleStore persists reports in a Pebble database keyed by "r|<id>".
type PebbleStore struct {
	db        *pebble.DB
	cache     *pebble.Cache
	writeOpts *pebble.WriteOptions
	count     atomic.Int64
	closed    atomic.Bool

	mu sync.Mutex // serialises read-modify-write of the counter

	metricsUpdateInterval time.Duration
	stop                  chan struct{}
	wg                    sync.WaitGroup
}

// OpenPebble opens or creates a Pebble database at path.
func OpenPebble(path string, opts ...Option) (*PebbleStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("pebble path is empty")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	pebbleOpts := &pebble.Options{}
	if cfg.cacheBytes > 0 {
		pebbleOpts.Cache = pebble.NewCache(cfg.cacheBytes)
	}
	level := pebble.LevelOptions{
		FilterPolicy: bloom.FilterPolicy(10),
		FilterType:   pebble.TableFilter,
	}
	pebbleOpts.Levels = make([]pebble.LevelOptions, 7)
	for i := range pebbleOpts.Levels {
		pebbleOpts.Levels[i] = level
	}
	db, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		if pebbleOpts.Cache != nil {
			pebbleOpts.Cache.Unref()
		}
		return nil, fmt.Errorf("report pebble open: %w", err)
	}

	s := &PebbleStore{
		db:                    db,
		cache:                 pebbleOpts.Cache,
		writeOpts:             pebble.NoSync,
		metricsUpdateInterval: cfg.metricsUpdateInterval,
		stop:                  make(chan struct{}),
	}
	if cfg.sync {
		s.writeOpts = pebble.Sync
	}

	n, err := s.scanCount()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.count.Store(int64(n))

	s.wg.Add(1)
	go s.metricsLoop()
	return s, nil
}

func (s *PebbleStore) scanCount() (int, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: reportLower, UpperBound: reportUpper})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

func (s *PebbleStore) metricsLoop() {
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

func (s *PebbleStore) exists(key []byte) (bool, error) {
	_, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = closer.Close()
	return true, nil
}

// Save implements Store.
func (s *PebbleStore) Save(ctx context.Context, r *model.SearchReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if r == nil || r.ID == "" {
		return ErrInvalidID
	}
	value, err := encodeReport(r)
	if err != nil {
		metrics.RecordStoreOperation("save", "error")
		return err
	}

	key := reportKey(r.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	existed, err := s.exists(key)
	if err != nil {
		metrics.RecordStoreOperation("save", "error")
		return fmt.Errorf("report pebble get: %w", err)
	}
	if err := s.db.Set(key, value, s.writeOpts); err != nil {
		metrics.RecordStoreOperation("save", "error")
		return fmt.Errorf("report pebble set: %w", err)
	}
	if !existed {
		s.count.Add(1)
	}
	metrics.RecordStoreOperation("save", "ok")
	return nil
}

// Get implements Store.
func (s *PebbleStore) Get(ctx context.Context, id string) (*model.SearchReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	value, closer, err := s.db.Get(reportKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		metrics.RecordStoreOperation("get", "not_found")
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreOperation("get", "error")
		return nil, fmt.Errorf("report pebble get: %w", err)
	}
	defer closer.Close()
	metrics.RecordStoreOperation("get", "ok")
	return decodeReport(value)
}

// Delete implements Store.
func (s *PebbleStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	key := reportKey(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	existed, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("report pebble get: %w", err)
	}
	if !existed {
		return nil
	}
	if err := s.db.Delete(key, s.writeOpts); err != nil {
		metrics.RecordStoreOperation("delete", "error")
		return fmt.Errorf("report pebble delete: %w", err)
	}
	s.count.Add(-1)
	metrics.RecordStoreOperation("delete", "ok")
	return nil
}

// Purge implements Store. Expired keys are removed in a single batch.
func (s *PebbleStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: reportLower, UpperBound: reportUpper})
	if err != nil {
		return 0, err
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	removed := 0
	for iter.First(); iter.Valid(); iter.Next() {
		if stamp, ok := stampOf(iter.Value()); ok && stamp.Before(cutoff) {
			key := append([]byte(nil), iter.Key()...)
			if err := batch.Delete(key, nil); err != nil {
				_ = iter.Close()
				return 0, err
			}
			removed++
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}
	if err := batch.Commit(s.writeOpts); err != nil {
		metrics.RecordStoreOperation("purge", "error")
		return 0, fmt.Errorf("report pebble purge: %w", err)
	}
	s.count.Add(-int64(removed))
	metrics.RecordStoreOperation("purge", "ok")
	return removed, nil
}

// Count implements Store.
func (s *PebbleStore) Count(_ context.Context) int {
	return int(s.count.Load())
}

// Close flushes and releases Pebble resources.
func (s *PebbleStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.stop != nil && s.metricsUpdateInterval > 0 {
		select {
		case <-s.stop:
		default:
			close(s.stop)
		}
	}
	s.wg.Wait()

	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.cache != nil {
		s.cache.Unref()
	}
	return err
}
