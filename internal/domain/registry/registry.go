// Package registry holds the events of one search session.
package registry

import (
	"context"
	"sync"

	"github.com/okian/seisnear/internal/domain/dedupe"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/pkg/logger"
	"github.com/okian/seisnear/pkg/metrics"
)

// Registry maps event ids to events. It is filled by event discovery and
// read by station discovery; events are never modified once registered.
type Registry struct {
	mu     sync.RWMutex
	byID   map[int64]model.Event
	order  []int64
	nextID int64

	dedupe dedupe.Deduper
	log    logger.Logger
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		byID: make(map[int64]model.Event),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dedupe == nil {
		r.dedupe = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	}
	if r.log == nil {
		r.log = logger.Get().Named("registry")
	}
	return r
}

// Register adds e and returns the stored copy. Events without an id get the
// next session-unique id. A second event with the same catalog PublicID, or
// an already used id, is dropped and reported as false.
func (r *Registry) Register(ctx context.Context, e model.Event) (model.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.PublicID != "" && r.dedupe.SeenAndRecord(ctx, e.PublicID) {
		r.log.Debug(ctx, "duplicate event dropped", logger.String("public_id", e.PublicID))
		metrics.RecordEventDuplicate()
		return model.Event{}, false
	}

	if e.ID == 0 {
		for {
			r.nextID++
			if _, taken := r.byID[r.nextID]; !taken {
				break
			}
		}
		e.ID = r.nextID
	} else if _, taken := r.byID[e.ID]; taken {
		if e.PublicID != "" {
			r.dedupe.Unrecord(ctx, e.PublicID)
		}
		r.log.Warn(ctx, "event id already registered", logger.Int64("event_id", e.ID))
		return model.Event{}, false
	}

	r.byID[e.ID] = e
	r.order = append(r.order, e.ID)
	return e, true
}

// Len returns the number of registered events.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Events returns a snapshot of the events in registration order.
func (r *Registry) Events() []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Event, len(r.order))
	for i, id := range r.order {
		out[i] = r.byID[id]
	}
	return out
}
