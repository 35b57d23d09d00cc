package discovery

import (
	"time"

	"github.com/okian/seisnear/internal/domain/catalog"
	"github.com/okian/seisnear/pkg/logger"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithK sets how many stations are kept per event.
func WithK(k int) Option {
	return func(c *Coordinator) {
		c.k = k
	}
}

// WithApprovedChannels sets the channel codes eligible for a match.
func WithApprovedChannels(codes ...string) Option {
	return func(c *Coordinator) {
		c.approvedChannels = codes
	}
}

// WithApprovedNetworks restricts the bulk query and the producers to the
// given network codes. An empty list means every network.
func WithApprovedNetworks(codes ...string) Option {
	return func(c *Coordinator) {
		c.approvedNetworks = codes
	}
}

// WithMaxChannelsPerStation caps the eligible channels tried per station and event.
func WithMaxChannelsPerStation(n int) Option {
	return func(c *Coordinator) {
		c.maxChannelsPerStation = n
	}
}

// WithMaxProducers caps the producers running at once. Zero runs one
// goroutine per network with no cap.
func WithMaxProducers(n int) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.maxProducers = n
		}
	}
}

// WithProducerTimeout bounds the wait for producers. When it expires the
// result is returned with what has been inserted so far and marked degraded.
// Zero waits for every producer.
func WithProducerTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.producerTimeout = d
		}
	}
}

// WithIncludeRestricted asks the catalog for restricted stations too.
func WithIncludeRestricted(include bool) Option {
	return func(c *Coordinator) {
		c.includeRestricted = include
	}
}

// WithResolver replaces the inventory as the coordinate resolver.
func WithResolver(r catalog.CoordinateResolver) Option {
	return func(c *Coordinator) {
		c.resolver = r
	}
}

// WithStationIcon sets the display hint attached to candidates.
func WithStationIcon(icon string) Option {
	return func(c *Coordinator) {
		c.icon = icon
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithMaxAttempts sets how many radii are tried before giving up.
func WithMaxAttempts(n int) PolicyOption {
	return func(p *Policy) {
		p.maxAttempts = n
	}
}

// WithRadiusMultiplier sets the factor applied to the radius after a no-data answer.
func WithRadiusMultiplier(m float64) PolicyOption {
	return func(p *Policy) {
		p.multiplier = m
	}
}

// WithPolicyLogger sets the logger.
func WithPolicyLogger(l logger.Logger) PolicyOption {
	return func(p *Policy) {
		p.log = l
	}
}

// FinderOption configures an EventFinder.
type FinderOption func(*EventFinder)

// WithEventLimit sets the default number of events requested.
func WithEventLimit(n int) FinderOption {
	return func(f *EventFinder) {
		if n > 0 {
			f.limit = n
		}
	}
}

// WithWindow sets the event window around the origin time.
func WithWindow(lead, tail time.Duration) FinderOption {
	return func(f *EventFinder) {
		f.lead = lead
		f.tail = tail
	}
}

// WithOrderBy sets the catalog ordering of events.
func WithOrderBy(orderBy string) FinderOption {
	return func(f *EventFinder) {
		f.orderBy = orderBy
	}
}

// WithDedupeSize bounds the per-session duplicate filter.
func WithDedupeSize(n int) FinderOption {
	return func(f *EventFinder) {
		f.dedupeSize = n
	}
}

// WithFinderLogger sets the logger.
func WithFinderLogger(l logger.Logger) FinderOption {
	return func(f *EventFinder) {
		f.log = l
	}
}
