package config

import (
	"errors"
)

// Sentinel error kinds for this package so callers can match with
// errors.Is without parsing messages.
var (
	// ErrInvalidConfig marks a configuration that parsed but failed
	// validation, such as a zero worker count or an empty listen address.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig marks a failure to read or parse a configuration
	// source before validation ran.
	ErrLoadConfig = errors.New("load config failed")
)
