package main

import (
	"context"
	"flag"
	"math"
	"os"
	"time"

	"github.com/okian/seisnear/internal/domain/types"
	"github.com/okian/seisnear/internal/probe"
)

// Default configuration constants.
const (
	defaultRadius     = 1.0
	defaultProbeLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL       = flag.String("url", probe.DefaultBaseURL, "Base URL of the service")
		lat           = flag.Float64("lat", math.NaN(), "Origin latitude in degrees")
		lng           = flag.Float64("lng", math.NaN(), "Origin longitude in degrees")
		radius        = flag.Float64("radius", defaultRadius, "Event search radius in degrees")
		stationRadius = flag.Float64("station-radius", 0, "Initial station radius in degrees (default: -radius)")
		start         = flag.String("start", "", "Start date (YYYY-MM-DD)")
		end           = flag.String("end", "", "End date (YYYY-MM-DD)")
		magnitude     = flag.Float64("magnitude", 0, "Minimum magnitude")
		async         = flag.Bool("async", false, "Submit asynchronously and poll")
		poll          = flag.Duration("poll", probe.DefaultPollInterval, "Poll interval for async searches")
		timeout       = flag.Duration("timeout", probe.DefaultTimeout, "HTTP request timeout")
		logFile       = flag.String("log", "", "Also write the log to this file")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp(os.Stdout)
		return
	}
	if math.IsNaN(*lat) || math.IsNaN(*lng) {
		os.Stderr.WriteString("-lat and -lng are required\n\n")
		probe.ShowHelp(os.Stderr)
		os.Exit(2)
	}

	closeLog, err := probe.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeLimit)
	defer cancel()

	cfg := &probe.Config{
		BaseURL:      *baseURL,
		Async:        *async,
		PollInterval: *poll,
		Timeout:      *timeout,
		LogFile:      *logFile,
		Verbose:      *verbose,
		Request: types.SearchRequest{
			Lat:           lat,
			Lng:           lng,
			Radius:        *radius,
			StationRadius: *stationRadius,
			StartDate:     *start,
			EndDate:       *end,
			Magnitude:     *magnitude,
		},
	}

	if _, err := probe.Run(ctx, cfg, os.Stdout); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
