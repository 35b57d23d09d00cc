package repository

import "time"

type config struct {
	metricsUpdateInterval time.Duration
	cacheBytes            int64
	sync                  bool
}

func defaultConfig() config {
	return config{
		metricsUpdateInterval: 10 * time.Second,
		cacheBytes:            8 << 20,
	}
}

// Option configures a store.
type Option func(*config)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(c *config) {
		if interval > 0 {
			c.metricsUpdateInterval = interval
		}
	}
}

// WithCacheBytes sets the Pebble block cache size. Zero disables the cache.
func WithCacheBytes(n int64) Option {
	return func(c *config) {
		if n >= 0 {
			c.cacheBytes = n
		}
	}
}

// WithSync makes every Pebble write durable before returning.
func WithSync(sync bool) Option {
	return func(c *config) {
		c.sync = sync
	}
}
