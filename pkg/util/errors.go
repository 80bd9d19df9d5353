// Package util provides logging, the error taxonomy, and input validation
// helpers shared by the netfleet packages.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Each is fatal to the process and is raised before any
// dispatch round starts.
var (
	ErrValidationFailed  = errors.New("validation failed")
	ErrInvalidPattern    = errors.New("invalid pattern")
	ErrEmptyInventory    = errors.New("no hosts matched")
	ErrUserAbort         = errors.New("aborted by user")
	ErrMissingCredential = errors.New("missing required credential")
)

// PatternError reports a host pattern that could not be compiled.
type PatternError struct {
	Option  string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	msg := fmt.Sprintf("bad pattern for option %s: %q", e.Option, e.Pattern)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PatternError) Unwrap() error {
	return ErrInvalidPattern
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
