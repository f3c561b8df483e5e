package configuration

import "errors"

var (
	// ErrReadConfig is returned when a configuration file exists but could
	// not be parsed.
	ErrReadConfig = errors.New("failed to read configuration")

	// ErrInvalidValue is returned when a configuration key holds a value
	// that cannot be used.
	ErrInvalidValue = errors.New("invalid configuration value")
)
