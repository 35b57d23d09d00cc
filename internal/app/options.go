package service

import (
	"time"

	"github.com/okian/seisnear/internal/adapters/repository"
	"github.com/okian/seisnear/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of waiting asynchronous searches.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStore sets the report store. The Service closes it on Stop.
// An in-memory store is used when none is given.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRetention sets how long reports are kept after their last update.
// Zero keeps them forever.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retention = d
		}
	}
}

// WithPurgeInterval sets how often expired reports are removed.
func WithPurgeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.purgeInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
