package config

import (
	"fmt"
	"strings"
)

// ConfigError reports a missing or invalid configuration element. It always
// names the component or file it refers to so callers never see a bare
// "operation failed".
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", e.Component, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for the given component or file.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// FieldError is a single field-level schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every field violation found for one component.
// Write operations validate before touching any file, so a ValidationError
// guarantees nothing was mutated.
type ValidationError struct {
	Type   ComponentType
	Name   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("config: %s %q failed validation: %s", e.Type, e.Name, strings.Join(parts, "; "))
}
