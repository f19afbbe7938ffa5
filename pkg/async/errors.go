package async

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when an async setting cannot be turned
	// into a mode, for example an unknown job name.
	ErrConfiguration = errors.New("async: invalid configuration")

	// ErrClientNotFound is returned when a job names a client that is not
	// registered in the executing process.
	ErrClientNotFound = errors.New("async: client not found")

	// ErrNoInline is returned when a request must run inline but the client
	// has no inline implementation.
	ErrNoInline = errors.New("async: no inline implementation")

	// ErrDuplicateJob is returned when a job name is registered twice.
	ErrDuplicateJob = errors.New("async: job already registered")
)

// ConfigurationError wraps ErrConfiguration with the offending value.
type ConfigurationError struct {
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("async: invalid setting %v: %s", e.Value, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ClientNotFoundError wraps ErrClientNotFound with the client ID.
type ClientNotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *ClientNotFoundError) Error() string {
	return fmt.Sprintf("async: client not found: %s", e.ID)
}

// Unwrap returns the underlying error.
func (e *ClientNotFoundError) Unwrap() error {
	return ErrClientNotFound
}
