package config

import (
	"errors"
)

// Sentinel error kinds for this package. Both stop the process at startup.
var (
	// ErrInvalidConfig marks a setting that failed Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks an unreadable file or an undecodable value.
	ErrLoadConfig = errors.New("load config failed")
)
