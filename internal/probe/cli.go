package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/seisnear/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging configures the global logger to write to stderr and, when
// logFile is set, to that file as well. It returns a closer for the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	var out io.Writer = os.Stderr
	closer := func() error { return nil }

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, file)
		closer = file.Close
	}

	if err := logger.InitWith(logger.Options{Output: out}); err != nil {
		_ = closer()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closer, nil
}

// ShowHelp prints usage information for the probe tool.
func ShowHelp(w io.Writer) {
	fmt.Fprintf(w, `seisnear probe
==============

Runs one station search against a seisnear service and prints the nearest
stations of every event found.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default %q)
  -lat float, -lng float
        Search origin in degrees (required)
  -radius float
        Event search radius in degrees (default 1)
  -station-radius float
        Initial station radius in degrees (default: same as -radius)
  -start, -end string
        Date range as YYYY-MM-DD
  -magnitude float
        Minimum magnitude
  -async
        Submit to /searches and poll for the report
  -poll duration
        Poll interval for async searches (default %s)
  -timeout duration
        HTTP request timeout (default %s)
  -log string
        Also write the log to this file
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  go run ./cmd/probe -lat 23.8 -lng 121.6 -radius 2 -start 2024-04-01 -end 2024-04-03
  go run ./cmd/probe -async -lat 35.7 -lng 139.7 -radius 5 -magnitude 6
`, DefaultBaseURL, DefaultPollInterval, DefaultTimeout)
}
