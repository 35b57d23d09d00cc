package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/okian/seisnear/internal/domain/catalog"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/internal/domain/registry"
	"github.com/okian/seisnear/pkg/logger"
	"github.com/okian/seisnear/pkg/metrics"
)

// Defaults for a Policy.
const (
	DefaultMaxAttempts      = 8
	DefaultRadiusMultiplier = 2.0
)

// Result is the terminal outcome of station discovery. Stations is never nil.
type Result struct {
	Stations         map[int64][]model.Candidate
	Outcome          model.Outcome
	Attempts         int
	Radius           float64 // radius of the last attempt
	Degraded         bool
	TimedOutNetworks []string
	Err              error // catalog failure behind OutcomeFailed
}

// Policy retries the Coordinator with a growing radius while the catalog
// reports no data. Any other failure ends the search at once.
type Policy struct {
	coord       *Coordinator
	maxAttempts int
	multiplier  float64
	log         logger.Logger
}

// NewPolicy wraps coord.
func NewPolicy(coord *Coordinator, opts ...PolicyOption) (*Policy, error) {
	p := &Policy{
		coord:       coord,
		maxAttempts: DefaultMaxAttempts,
		multiplier:  DefaultRadiusMultiplier,
	}
	for _, opt := range opts {
		opt(p)
	}
	if coord == nil || p.maxAttempts < 1 || !(p.multiplier > 1) {
		return nil, ErrInvalidPolicy
	}
	if p.log == nil {
		p.log = logger.Get().Named("policy")
	}
	return p, nil
}

// MaxAttempts returns the attempt bound.
func (p *Policy) MaxAttempts() int { return p.maxAttempts }

// Discover searches the stations of every event in reg, starting at radius
// degrees around origin. It never returns an error: running out of attempts
// or a catalog failure yields an empty result with the matching outcome.
func (p *Policy) Discover(ctx context.Context, origin model.Coordinates, reg *registry.Registry, radius float64) Result {
	start := time.Now()
	res := Result{Stations: map[int64][]model.Candidate{}, Radius: radius}
	defer func() {
		metrics.RecordSearch(string(res.Outcome), float64(time.Since(start).Milliseconds()), res.Attempts)
	}()

	if reg == nil || reg.Len() == 0 {
		res.Outcome = model.OutcomeNoEvents
		return res
	}
	events := reg.Events()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		res.Attempts = attempt
		res.Radius = radius

		snap, err := p.coord.Discover(ctx, origin, events, radius)
		switch {
		case err == nil:
			res.Stations = snap.Stations
			res.Degraded = snap.Degraded
			res.TimedOutNetworks = snap.TimedOutNetworks
			res.Outcome = model.OutcomeFound
			return res

		case errors.Is(err, ErrNoEvents):
			res.Attempts = 0
			res.Outcome = model.OutcomeNoEvents
			return res

		case errors.Is(err, catalog.ErrNoData):
			if attempt == p.maxAttempts {
				break
			}
			next := radius * p.multiplier
			p.log.Info(ctx, "no stations in range, widening search",
				sessionField(ctx),
				logger.Int("attempt", attempt),
				logger.Float64("radius", radius),
				logger.Float64("next_radius", next))
			metrics.RecordRadiusEscalation()
			radius = next

		default:
			p.log.Error(ctx, "station discovery failed",
				sessionField(ctx),
				logger.Int("attempt", attempt),
				logger.Float64("radius", radius),
				logger.Error(err))
			res.Outcome = model.OutcomeFailed
			res.Err = err
			return res
		}
	}

	p.log.Warn(ctx, "no stations found within the maximum number of attempts",
		sessionField(ctx),
		logger.Int("attempts", res.Attempts),
		logger.Float64("radius", res.Radius))
	res.Outcome = model.OutcomeExhausted
	return res
}
