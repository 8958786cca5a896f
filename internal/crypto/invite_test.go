package crypto

import (
	"encoding/base64"
	"net/url"
	"testing"
)

func TestNewInviteCode(t *testing.T) {
	code, err := NewInviteCode()
	if err != nil {
		t.Fatalf("NewInviteCode() unexpected error: %v", err)
	}
	if len(code) != InviteCodeLength {
		t.Fatalf("expected length %d, got %d (%q)", InviteCodeLength, len(code), code)
	}
	if url.QueryEscape(code) != code {
		t.Errorf("code %q is not URL-safe", code)
	}

	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		t.Fatalf("code %q is not raw URL base64: %v", code, err)
	}
	if len(raw) != inviteEntropyBytes {
		t.Errorf("expected %d random bytes, got %d", inviteEntropyBytes, len(raw))
	}
}

func TestNewInviteCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewInviteCode()
		if err != nil {
			t.Fatalf("NewInviteCode() unexpected error: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code after %d iterations: %s", i, code)
		}
		seen[code] = true
	}
}
