// Package errors provides structured errors with a category code, a
// human-readable message, an optional fix suggestion and an optional cause.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	// ErrConfig marks a ConfigurationError: the session cannot be built from
	// the given selection or settings.
	ErrConfig = "CONFIG"
	// ErrSchedule marks a failure of a sensor's periodic task.
	ErrSchedule = "SCHEDULE"
	ErrExport   = "EXPORT"
	ErrPublish  = "PUBLISH"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Config is shorthand for New(ErrConfig, ...).
func Config(message, suggestion string) *Error {
	return New(ErrConfig, message, suggestion)
}

// Error implements the error interface.
//
//	✗ <What failed>
//
//	  <Why it failed>
//
//	  <How to fix it>
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
