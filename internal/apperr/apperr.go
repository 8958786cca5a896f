// Package apperr defines the error kinds shared by the adapters and services.
// Callers classify failures with errors.Is against the sentinel kinds; the
// typed carriers keep the details operators need for diagnostics.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrNotConfigured = errors.New("not configured")
	ErrNetwork       = errors.New("network error")
	ErrUpstream      = errors.New("upstream error")
)

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// NetworkError wraps a transport failure (timeout, refused connection, DNS).
type NetworkError struct {
	Service string
	Op      string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// UpstreamError reports an unexpected response from an external API.
type UpstreamError struct {
	Service string
	Op      string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Service, e.Op, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Service, e.Op, e.Status, e.Body)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// NotConfigured reports which dependency lacks configuration.
func NotConfigured(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotConfigured)
}

// Truncate shortens upstream bodies kept in error messages.
func Truncate(body []byte) string {
	const max = 400
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
