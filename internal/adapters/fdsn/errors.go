package fdsn

import "errors"

// Sentinel kinds for response parsing.
var (
	ErrMalformedRow = errors.New("malformed row")
	ErrNoHeader     = errors.New("missing header")
)
