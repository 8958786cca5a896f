package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", Invalid("day", "must be 1-31"), ErrValidation},
		{"network", &NetworkError{Service: "kv", Op: "get", Err: context.DeadlineExceeded}, ErrNetwork},
		{"upstream", &UpstreamError{Service: "github", Op: "open pull request", Status: 500}, ErrUpstream},
		{"not configured", NotConfigured("blob store"), ErrNotConfigured},
		{"wrapped upstream", fmt.Errorf("write: %w", &UpstreamError{Service: "blob", Status: 403}), ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
		})
	}
}

func TestNetworkErrorUnwrapsCause(t *testing.T) {
	err := &NetworkError{Service: "kv", Op: "get", Err: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected NetworkError to unwrap to its cause")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := Invalid("first_name", "is required")
	if err.Error() != "first_name: is required" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "first_name" {
		t.Errorf("expected ValidationError with field first_name, got %#v", err)
	}
}

func TestUpstreamErrorKeepsStatus(t *testing.T) {
	err := &UpstreamError{Service: "blob", Op: "put", Status: 405, Body: "method not allowed"}
	if !strings.Contains(err.Error(), "405") {
		t.Errorf("expected status in message, got %q", err.Error())
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 1000)
	got := Truncate([]byte(long))
	if len(got) != 403 {
		t.Errorf("Truncate() length = %d, want 403", len(got))
	}
	if Truncate([]byte("short")) != "short" {
		t.Error("Truncate() should keep short bodies")
	}
}
