package config

import "errors"

// Load and validation failures. Every error returned by Load or Validate
// matches one of these with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
	ErrConfigFile    = errors.New("config file unreadable")
)
