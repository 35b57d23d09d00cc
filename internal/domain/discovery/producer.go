package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/seisnear/internal/domain/catalog"
	"github.com/okian/seisnear/internal/domain/geo"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/pkg/logger"
	"github.com/okian/seisnear/pkg/metrics"
)

// producer matches the stations of one network against every event.
type producer struct {
	c        *Coordinator
	origin   model.Coordinates
	events   []model.Event
	aggs     map[int64]*aggregator
	resolver catalog.CoordinateResolver
}

// run processes net and reports whether it went through every station.
// It stops early once ctx is done; a network whose last station was
// matched counts as complete even if ctx expired meanwhile.
func (p producer) run(ctx context.Context, net catalog.Network) bool {
	start := time.Now()
	metrics.RecordProducerStarted()
	defer func() {
		metrics.RecordProducerDuration(float64(time.Since(start).Milliseconds()))
	}()

	for _, sta := range net.Stations {
		if ctx.Err() != nil {
			return false
		}
		for _, ev := range p.events {
			p.match(ctx, net.Code, sta, ev)
		}
	}
	return true
}

// match offers at most one channel of sta to ev's aggregator. Up to
// maxChannelsPerStation eligible channels are tried; the first that
// resolves is inserted and ends the search for this pair.
func (p producer) match(ctx context.Context, netCode string, sta catalog.Station, ev model.Event) {
	tried := 0
	for _, ch := range sta.Channels {
		if tried >= p.c.maxChannelsPerStation {
			return
		}
		if !p.c.approved(ch.Code) || !ev.Overlaps(ch.Start, ch.End) {
			continue
		}
		tried++

		seed := ch.SeedID(netCode, sta.Code)
		at := ev.StartTime
		if ch.Start.After(at) {
			at = ch.Start
		}
		coords, err := p.resolver.ResolveCoordinates(seed, at)
		if err == nil && !geo.ValidCoordinates(coords.Coordinates()) {
			err = fmt.Errorf("%w: invalid position %v", catalog.ErrNotFound, coords.Coordinates())
		}
		if err != nil {
			p.c.log.Warn(ctx, "could not resolve channel coordinates",
				sessionField(ctx),
				logger.String("seed_id", seed.String()),
				logger.Int64("event_id", ev.ID),
				logger.Error(err))
			metrics.RecordResolveFailure()
			continue
		}

		distance := geo.DistanceKm(p.origin, coords.Coordinates())
		cand := model.Candidate{
			EventID:     ev.ID,
			SeedID:      seed,
			Position:    coords.Coordinates(),
			ElevationM:  coords.ElevationM,
			LocalDepthM: coords.LocalDepthM,
			DistanceKm:  distance,
			StartTime:   ev.StartTime,
			EndTime:     ev.EndTime,
			Icon:        p.c.icon,
		}
		metrics.RecordCandidate(p.aggs[ev.ID].Insert(cand, distance))
		return
	}
}
