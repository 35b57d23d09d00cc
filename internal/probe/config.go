// Package probe drives a running seisnear service over HTTP: it checks
// health, submits one search, waits for the report and prints the
// nearest stations of every event found.
package probe

import (
	"errors"
	"time"

	"github.com/okian/seisnear/internal/domain/types"
)

// Default probe settings.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Probe errors.
var (
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrRequestFailed = errors.New("request failed")
	ErrSearchFailed  = errors.New("search failed")
)

// Config holds the probe settings.
type Config struct {
	BaseURL      string        // Base URL of the service
	Async        bool          // Submit to /searches and poll instead of /search
	PollInterval time.Duration // Delay between polls of an async search
	Timeout      time.Duration // HTTP request timeout
	LogFile      string        // Optional file receiving a copy of the log
	Verbose      bool          // Debug logging

	Request types.SearchRequest
}

// Stats summarizes one probe run.
type Stats struct {
	ID        string
	Polls     int
	Events    int
	Stations  int
	StartTime time.Time
	Duration  time.Duration
}
