// Package manifest reads and writes the project deploy manifest, and imports
// service definitions from docker compose files.
package manifest

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when the manifest file does not exist.
	ErrNotFound = errors.New("manifest file not found")

	// ErrInvalidYAML is returned when the manifest cannot be parsed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrNoServices is returned when the manifest defines no services.
	ErrNoServices = errors.New("manifest defines no services")

	// ErrDuplicateService is returned when two services share a name.
	ErrDuplicateService = errors.New("duplicate service name")

	// ErrInvalidService is returned when a service entry is incomplete.
	ErrInvalidService = errors.New("invalid service definition")
)

// ManifestError wraps errors with the field that caused them.
type ManifestError struct {
	Field   string
	Message string
	Err     error
}

func (e *ManifestError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// NewManifestError creates a new ManifestError.
func NewManifestError(field, message string, err error) *ManifestError {
	return &ManifestError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
