package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrBackpressure   = errors.New("search queue is full")
	ErrInvalidRequest = errors.New("invalid search request")
	ErrReportNotFound = errors.New("search report not found")
	ErrMissingEngine  = errors.New("event finder and discovery policy are required")
	ErrSearchFailed   = errors.New("search failed")
)
