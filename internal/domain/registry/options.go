package registry

import (
	"github.com/okian/seisnear/internal/domain/dedupe"
	"github.com/okian/seisnear/pkg/logger"
)

// Option configures a Registry.
type Option func(*Registry)

// WithDeduper sets the deduper used to drop repeated catalog ids.
func WithDeduper(d dedupe.Deduper) Option {
	return func(r *Registry) {
		r.dedupe = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}
