package tree

import (
	"errors"
	"fmt"
)

// ConfigurationError reports entity metadata the tree operations cannot
// work with, such as an entity without a tree encoding.
//
// It is fatal to the calling operation and never retried.
type ConfigurationError struct {
	// Entity names the entity type.
	Entity string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("tree configuration: %s", e.Message)
	}
	return fmt.Sprintf("tree configuration: %s: %s", e.Entity, e.Message)
}

// IsConfigurationError returns true if the error is a ConfigurationError.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func unsupportedEncoding(entity string) *ConfigurationError {
	return &ConfigurationError{
		Entity:  entity,
		Message: "supported only in tree entities",
	}
}
