package config

import "fmt"

// ConfigError represents a configuration-specific error: a required key that
// is missing, or a value that cannot be converted to the requested type.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// NewConfigError creates a new configuration error
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}
