package catalog

import "errors"

// Sentinel kinds for catalog failures.
var (
	// ErrNoData means the catalog has nothing in the requested area and time.
	ErrNoData = errors.New("catalog: no data")
	// ErrNotFound means a channel could not be resolved.
	ErrNotFound = errors.New("catalog: not found")
	// ErrTransport covers every other catalog failure.
	ErrTransport = errors.New("catalog: transport error")
)
