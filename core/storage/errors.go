package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrInvalidConfig marks a configuration value rejected at construction.
	ErrInvalidConfig = errors.New("invalid storage configuration")
	// ErrInvalidDuration marks a negative duration passed to Transition.
	ErrInvalidDuration = errors.New("invalid duration")
)

// ConfigError reports a configuration field that failed validation.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v is an invalid value for %s: %s", e.Value, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// DurationError reports an invalid duration passed to Transition.
type DurationError struct {
	Hours float64
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("%v is an invalid value for duration: it should not be negative", e.Hours)
}

func (e *DurationError) Unwrap() error { return ErrInvalidDuration }
