// Package discovery finds, for every event of a session, the nearest
// stations recording an approved channel during the event window.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/seisnear/internal/domain/catalog"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/internal/domain/nearest"
	"github.com/okian/seisnear/pkg/logger"
	"github.com/okian/seisnear/pkg/metrics"
)

// Defaults for a Coordinator.
const (
	DefaultK                     = 5
	DefaultMaxChannelsPerStation = 2
)

// DefaultApprovedChannels are the channel codes a candidate may be built from.
var DefaultApprovedChannels = []string{"BHZ", "MXZ"}

// Producer states.
const (
	producerPending int32 = iota
	producerDone
	producerAborted
)

// Snapshot is the per-event outcome of one station query. It is built only
// after every producer has joined, or after the producer timeout expired.
type Snapshot struct {
	Stations         map[int64][]model.Candidate
	Degraded         bool
	TimedOutNetworks []string
}

type aggregator = nearest.Synchronized[int64, model.Candidate]

// Coordinator issues one bulk station query for a set of events and fans the
// returned networks out to concurrent producers.
type Coordinator struct {
	client                catalog.Client
	resolver              catalog.CoordinateResolver
	k                     int
	approvedChannels      []string
	channelSet            map[string]struct{}
	approvedNetworks      []string
	maxChannelsPerStation int
	maxProducers          int
	producerTimeout       time.Duration
	includeRestricted     bool
	icon                  string
	log                   logger.Logger
}

// New builds a Coordinator around client.
func New(client catalog.Client, opts ...Option) (*Coordinator, error) {
	if client == nil {
		return nil, ErrNilCatalog
	}
	c := &Coordinator{
		client:                client,
		k:                     DefaultK,
		approvedChannels:      DefaultApprovedChannels,
		maxChannelsPerStation: DefaultMaxChannelsPerStation,
		icon:                  model.DefaultStationIcon,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.k < 1 {
		return nil, nearest.ErrInvalidCapacity
	}
	if c.maxChannelsPerStation < 1 {
		c.maxChannelsPerStation = DefaultMaxChannelsPerStation
	}
	c.channelSet = make(map[string]struct{}, len(c.approvedChannels))
	for _, ch := range c.approvedChannels {
		if ch = strings.ToUpper(strings.TrimSpace(ch)); ch != "" {
			c.channelSet[ch] = struct{}{}
		}
	}
	if len(c.channelSet) == 0 {
		return nil, ErrInvalidChannels
	}
	if c.log == nil {
		c.log = logger.Get().Named("coordinator")
	}
	return c, nil
}

// Discover runs one attempt at radius degrees around origin. Events without
// a time window are skipped and get an empty entry in the snapshot. It returns ErrNoEvents without calling the
// catalog when nothing is left to search for, and passes catalog errors
// through unchanged.
func (c *Coordinator) Discover(ctx context.Context, origin model.Coordinates, events []model.Event, radius float64) (*Snapshot, error) {
	searchable := c.searchable(ctx, events)
	if len(searchable) == 0 {
		return nil, ErrNoEvents
	}
	if !(radius > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}

	// Every aggregator exists before any producer starts.
	aggs := make(map[int64]*aggregator, len(searchable))
	for _, e := range searchable {
		agg, err := nearest.NewSynchronized[int64, model.Candidate](e.ID, c.k)
		if err != nil {
			return nil, err
		}
		aggs[e.ID] = agg
	}

	inv, err := c.client.QueryStationsBulk(ctx, catalog.StationQuery{
		Rows:              c.bulkRows(searchable),
		Origin:            origin,
		MaxRadius:         radius,
		IncludeRestricted: c.includeRestricted,
		MatchTimeseries:   true,
	})
	if err != nil {
		return nil, err
	}

	resolver := c.resolver
	if resolver == nil {
		resolver = inv
	}

	networks := c.networks(inv)
	c.log.Debug(ctx, "fanning out station producers",
		sessionField(ctx),
		logger.Int("networks", len(networks)),
		logger.Int("events", len(searchable)),
		logger.Float64("radius", radius))

	waitCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.producerTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, c.producerTimeout)
	}
	defer cancel()

	var sem chan struct{}
	if c.maxProducers > 0 {
		sem = make(chan struct{}, c.maxProducers)
	}

	states := make([]atomic.Int32, len(networks))
	var wg sync.WaitGroup
	for i := range networks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-waitCtx.Done():
					states[i].Store(producerAborted)
					return
				}
			}
			p := producer{c: c, origin: origin, events: searchable, aggs: aggs, resolver: resolver}
			if p.run(waitCtx, networks[i]) {
				states[i].Store(producerDone)
			} else {
				states[i].Store(producerAborted)
			}
		}(i)
	}

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-waitCtx.Done():
		// Give producers that already finished a chance to report before the snapshot.
		select {
		case <-joined:
		default:
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Skipped events keep an empty entry so every input id is present.
	snap := &Snapshot{Stations: make(map[int64][]model.Candidate, len(events))}
	for _, e := range events {
		snap.Stations[e.ID] = []model.Candidate{}
	}
	for id, agg := range aggs {
		snap.Stations[id] = agg.Ordered()
	}
	for i := range networks {
		if states[i].Load() != producerDone {
			snap.TimedOutNetworks = append(snap.TimedOutNetworks, networks[i].Code)
			metrics.RecordProducerTimedOut()
		}
	}
	if len(snap.TimedOutNetworks) > 0 {
		snap.Degraded = true
		sort.Strings(snap.TimedOutNetworks)
		c.log.Warn(ctx, "producers did not finish in time, returning partial result",
			sessionField(ctx),
			logger.Any("networks", snap.TimedOutNetworks),
			logger.Duration("timeout", c.producerTimeout))
	}
	return snap, nil
}

// searchable drops events without a time window.
func (c *Coordinator) searchable(ctx context.Context, events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !e.HasWindow() {
			c.log.Warn(ctx, "event has no time window, skipping",
				sessionField(ctx), logger.Int64("event_id", e.ID), logger.String("public_id", e.PublicID))
			metrics.RecordEventSkipped()
			continue
		}
		out = append(out, e)
	}
	return out
}

// bulkRows builds one row per event and approved network, or one wildcard
// row per event when no network filter is configured.
func (c *Coordinator) bulkRows(events []model.Event) []catalog.BulkRow {
	nets := c.approvedNetworks
	if len(nets) == 0 {
		nets = []string{catalog.Wildcard}
	}
	rows := make([]catalog.BulkRow, 0, len(events)*len(nets))
	for _, e := range events {
		for _, n := range nets {
			rows = append(rows, catalog.BulkRow{
				Network:  n,
				Station:  catalog.Wildcard,
				Location: catalog.Wildcard,
				Channels: c.approvedChannels,
				Start:    e.StartTime,
				End:      e.EndTime,
			})
		}
	}
	return rows
}

// networks returns the inventory networks allowed by the network filter.
func (c *Coordinator) networks(inv *catalog.Inventory) []catalog.Network {
	if inv == nil {
		return nil
	}
	if len(c.approvedNetworks) == 0 {
		return inv.Networks
	}
	allowed := make(map[string]struct{}, len(c.approvedNetworks))
	for _, n := range c.approvedNetworks {
		allowed[n] = struct{}{}
	}
	out := make([]catalog.Network, 0, len(inv.Networks))
	for _, n := range inv.Networks {
		if _, ok := allowed[n.Code]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (c *Coordinator) approved(channel string) bool {
	_, ok := c.channelSet[strings.ToUpper(channel)]
	return ok
}
