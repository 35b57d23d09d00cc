package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound  = errors.New("report not found")
	ErrInvalidID = errors.New("invalid report id")
	ErrClosed    = errors.New("store closed")
)
