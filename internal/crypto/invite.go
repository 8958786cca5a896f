package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	inviteEntropyBytes = 24

	// InviteCodeLength is the encoded length of an invite code.
	InviteCodeLength = 32
)

// NewInviteCode returns a fresh single-use invite code: 24 random bytes,
// URL-safe base64 without padding.
func NewInviteCode() (string, error) {
	b := make([]byte, inviteEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
