package discovery

import "errors"

// Sentinel kinds for discovery setup and single attempts.
var (
	ErrNoEvents        = errors.New("no searchable events")
	ErrInvalidRadius   = errors.New("radius must be positive")
	ErrInvalidPolicy   = errors.New("invalid retry policy")
	ErrNilCatalog      = errors.New("catalog client is required")
	ErrInvalidChannels = errors.New("at least one approved channel is required")
)
