// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventServiceURL and StationServiceURL are the FDSN web-service roots.
	EventServiceURL   string `koanf:"event_service_url"`
	StationServiceURL string `koanf:"station_service_url"`

	// CatalogTimeoutMS bounds each catalog request.
	CatalogTimeoutMS int `koanf:"catalog_timeout_ms"`

	// CatalogRateLimit is the sustained catalog request rate per second;
	// CatalogRateBurst the number of requests allowed at once.
	CatalogRateLimit float64 `koanf:"catalog_rate_limit"`
	CatalogRateBurst int     `koanf:"catalog_rate_burst"`

	// TopK is the number of nearest stations kept per event.
	TopK int `koanf:"top_k"`

	// MaxAttempts and RadiusMultiplier drive the radius escalation.
	MaxAttempts      int     `koanf:"max_attempts"`
	RadiusMultiplier float64 `koanf:"radius_multiplier"`

	// ApprovedChannels lists the channel codes a station may match with.
	ApprovedChannels []string `koanf:"approved_channels"`

	// ApprovedNetworks restricts the station query; empty means every network.
	ApprovedNetworks []string `koanf:"approved_networks"`

	// MaxChannelsPerStation caps the channels tried per station and event.
	MaxChannelsPerStation int `koanf:"max_channels_per_station"`

	// MaxProducers caps concurrent network producers; 0 means one per network.
	MaxProducers int `koanf:"max_producers"`

	// ProducerTimeoutMS bounds the producer join; 0 waits indefinitely.
	ProducerTimeoutMS int `koanf:"producer_timeout_ms"`

	// EventLimit caps the events per search when the request has no limit.
	EventLimit int `koanf:"event_limit"`

	// WindowLeadS and WindowTailS place the event window around the origin time.
	WindowLeadS int `koanf:"window_lead_s"`
	WindowTailS int `koanf:"window_tail_s"`

	// QueueSize bounds the asynchronous search queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of search workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the per-search event deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StorePath is the Pebble directory for reports; empty keeps them in memory.
	StorePath string `koanf:"store_path"`

	// ResultRetentionMinutes is how long reports are kept; 0 keeps them forever.
	ResultRetentionMinutes int `koanf:"result_retention_minutes"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		EventServiceURL:        "https://earthquake.usgs.gov/fdsnws/event/1/",
		StationServiceURL:      "https://service.iris.edu/fdsnws/station/1/",
		CatalogTimeoutMS:       30_000,
		CatalogRateLimit:       5,
		CatalogRateBurst:       5,
		TopK:                   5,
		MaxAttempts:            8,
		RadiusMultiplier:       2.0,
		ApprovedChannels:       []string{"BHZ", "MXZ"},
		ApprovedNetworks:       []string{},
		MaxChannelsPerStation:  2,
		MaxProducers:           0,
		ProducerTimeoutMS:      0,
		EventLimit:             10,
		WindowLeadS:            300,
		WindowTailS:            1800,
		QueueSize:              1024,
		WorkerCount:            4,
		DedupeSize:             4096,
		StorePath:              "",
		ResultRetentionMinutes: 60,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case c.EventServiceURL == "" || c.StationServiceURL == "":
		return fmt.Errorf("%w: catalog service urls must not be empty", ErrInvalidConfig)
	case c.CatalogTimeoutMS <= 0:
		return fmt.Errorf("%w: catalog_timeout_ms must be positive", ErrInvalidConfig)
	case c.TopK < 1:
		return fmt.Errorf("%w: top_k must be at least 1", ErrInvalidConfig)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max_attempts must be at least 1", ErrInvalidConfig)
	case !(c.RadiusMultiplier > 1):
		return fmt.Errorf("%w: radius_multiplier must be greater than 1", ErrInvalidConfig)
	case len(c.ApprovedChannels) == 0:
		return fmt.Errorf("%w: approved_channels must not be empty", ErrInvalidConfig)
	case c.MaxChannelsPerStation < 1:
		return fmt.Errorf("%w: max_channels_per_station must be at least 1", ErrInvalidConfig)
	case c.MaxProducers < 0, c.ProducerTimeoutMS < 0:
		return fmt.Errorf("%w: max_producers and producer_timeout_ms must not be negative", ErrInvalidConfig)
	case c.WindowLeadS < 0 || c.WindowTailS < 0:
		return fmt.Errorf("%w: event window must not be negative", ErrInvalidConfig)
	case c.QueueSize < 1 || c.WorkerCount < 1 || c.DedupeSize < 1:
		return fmt.Errorf("%w: queue_size, worker_count and dedupe_size must be positive", ErrInvalidConfig)
	case c.ResultRetentionMinutes < 0:
		return fmt.Errorf("%w: result_retention_minutes must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CatalogTimeout returns CatalogTimeoutMS as a duration.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.CatalogTimeoutMS) * time.Millisecond
}

// ProducerTimeout returns ProducerTimeoutMS as a duration.
func (c *Config) ProducerTimeout() time.Duration {
	return time.Duration(c.ProducerTimeoutMS) * time.Millisecond
}

// WindowLead returns the time before the origin covered by an event window.
func (c *Config) WindowLead() time.Duration {
	return time.Duration(c.WindowLeadS) * time.Second
}

// WindowTail returns the time after the origin covered by an event window.
func (c *Config) WindowTail() time.Duration {
	return time.Duration(c.WindowTailS) * time.Second
}

// ResultRetention returns how long search reports are kept.
func (c *Config) ResultRetention() time.Duration {
	return time.Duration(c.ResultRetentionMinutes) * time.Minute
}
