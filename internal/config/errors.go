package config

import (
	"fmt"
	"strings"
)

// Error types reported in ConfigurationError.ErrorType.
const (
	ErrorTypeParse      = "parse"
	ErrorTypeValidation = "validation"
	ErrorTypeIO         = "io"
)

// ConfigurationError represents a structured error that occurs while loading a record.
type ConfigurationError struct {
	FilePath  string `json:"filePath"`  // Full path to the file that caused the error
	Name      string `json:"name"`      // Record name
	Kind      string `json:"kind"`      // Record kind (services, renames)
	ErrorType string `json:"errorType"` // Type of error (parse, validation, io)
	Message   string `json:"message"`   // Human-readable error message
	Err       error  `json:"-"`         // Classification sentinel, if any
}

// Error implements the error interface
func (ce *ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.Kind, ce.Name, ce.Message)
}

// Unwrap exposes the classification sentinel to errors.Is.
func (ce *ConfigurationError) Unwrap() error {
	return ce.Err
}

// DetailedError returns a detailed error message with all context
func (ce *ConfigurationError) DetailedError() string {
	parts := []string{
		fmt.Sprintf("Configuration Error in %s", ce.Name),
		fmt.Sprintf("  File: %s", ce.FilePath),
		fmt.Sprintf("  Kind: %s", ce.Kind),
		fmt.Sprintf("  Type: %s", ce.ErrorType),
		fmt.Sprintf("  Error: %s", ce.Message),
	}
	return strings.Join(parts, "\n")
}

// ConfigurationErrorCollection holds multiple configuration errors
type ConfigurationErrorCollection struct {
	Errors []*ConfigurationError `json:"errors"`
}

// Error implements the error interface for the collection
func (cec *ConfigurationErrorCollection) Error() string {
	switch len(cec.Errors) {
	case 0:
		return "no configuration errors"
	case 1:
		return cec.Errors[0].Error()
	default:
		return fmt.Sprintf("%d configuration errors: %s (and %d more)",
			len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
	}
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Add adds a new error to the collection
func (cec *ConfigurationErrorCollection) Add(err *ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// NewConfigurationError creates a new configuration error with basic information
func NewConfigurationError(filePath, name, kind, errorType, message string, classification error) *ConfigurationError {
	return &ConfigurationError{
		FilePath:  filePath,
		Name:      name,
		Kind:      kind,
		ErrorType: errorType,
		Message:   message,
		Err:       classification,
	}
}
