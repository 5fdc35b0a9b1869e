// Package errors holds the typed errors shared by the simulation packages.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrConfiguration is matched by every ConfigurationError via errors.Is
var ErrConfiguration = stderrors.New("invalid configuration")

// ConfigurationError reports a configuration value that violates a
// construction-time invariant (envelope geometry, path parameters).
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

// NewConfigurationError creates a configuration error for field
func NewConfigurationError(field string, value interface{}, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Is allows errors.Is(err, ErrConfiguration)
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return stderrors.As(err, &cfgErr)
}
