package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/okian/seisnear/internal/domain/catalog"
	"github.com/okian/seisnear/internal/domain/dedupe"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/internal/domain/registry"
	"github.com/okian/seisnear/pkg/logger"
	"github.com/okian/seisnear/pkg/metrics"
)

// Defaults for an EventFinder.
const (
	DefaultEventLimit = 10
	DefaultOrderBy    = "magnitude"
	DefaultDedupeSize = 4096
)

// EventFinder fills a fresh registry with the events around a search origin.
type EventFinder struct {
	client     catalog.Client
	limit      int
	lead       time.Duration
	tail       time.Duration
	orderBy    string
	dedupeSize int
	log        logger.Logger
}

// NewEventFinder creates a finder backed by client.
func NewEventFinder(client catalog.Client, opts ...FinderOption) (*EventFinder, error) {
	if client == nil {
		return nil, ErrNilCatalog
	}
	f := &EventFinder{
		client:     client,
		limit:      DefaultEventLimit,
		lead:       model.DefaultWindowLead,
		tail:       model.DefaultWindowTail,
		orderBy:    DefaultOrderBy,
		dedupeSize: DefaultDedupeSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Get().Named("finder")
	}
	return f, nil
}

// Find queries the catalog for req and registers every event with its
// search window. No data yields an empty registry; other catalog failures
// are returned.
func (f *EventFinder) Find(ctx context.Context, req model.SearchRequest) (*registry.Registry, error) {
	reg := registry.New(
		registry.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(f.dedupeSize))),
		registry.WithLogger(f.log),
	)

	limit := req.Limit
	if limit <= 0 {
		limit = f.limit
	}
	events, err := f.client.QueryEvents(ctx, catalog.EventQuery{
		Origin:       req.Origin,
		MaxRadius:    req.Radius,
		Start:        req.Start,
		End:          req.End,
		MinMagnitude: req.MinMagnitude,
		Limit:        limit,
		OrderBy:      f.orderBy,
	})
	switch {
	case errors.Is(err, catalog.ErrNoData):
		f.log.Info(ctx, "no events found", sessionField(ctx))
		return reg, nil
	case err != nil:
		return nil, err
	}

	for _, e := range events {
		e.ID = 0
		reg.Register(ctx, e.WithWindow(f.lead, f.tail))
	}
	metrics.RecordEventsFound(reg.Len())
	f.log.Info(ctx, "events registered", sessionField(ctx), logger.Int("events", reg.Len()))
	return reg, nil
}
