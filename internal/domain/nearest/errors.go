package nearest

import "errors"

// Sentinel kinds for container construction errors.
var (
	ErrInvalidCapacity = errors.New("capacity must be at least 1")
)
