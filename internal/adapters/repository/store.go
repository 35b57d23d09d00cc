// Package repository stores search reports by session id.
package repository

import (
	"context"
	"time"

	"github.com/okian/seisnear/internal/domain/model"
)

// Store keeps search reports for later retrieval.
type Store interface {
	// Save inserts or replaces the report under r.ID.
	Save(ctx context.Context, r *model.SearchReport) error

	// Get returns the report stored under id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (*model.SearchReport, error)

	// Delete removes the report stored under id. Unknown ids are ignored.
	Delete(ctx context.Context, id string) error

	// Purge removes reports last updated before cutoff and returns how many were removed.
	Purge(ctx context.Context, cutoff time.Time) (int, error)

	// Count returns the number of stored reports.
	Count(ctx context.Context) int

	Close() error
}

// Open returns a Pebble-backed store at path, or an in-memory store when
// path is empty.
func Open(path string, opts ...Option) (Store, error) {
	if path == "" {
		return NewMemoryStore(opts...), nil
	}
	s, err := OpenPebble(path, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}
