package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// HashIterations is the PBKDF2 round count used for stored passwords.
	HashIterations = 200_000
	SaltLength     = 16
	KeyLength      = 32
)

var ErrInvalidSalt = errors.New("invalid password salt")

// HashPassword derives a PBKDF2-HMAC-SHA256 hash of password. When salt is
// empty a fresh random salt is generated. Hash and salt are returned base64url
// encoded without padding. The result is deterministic for a given salt.
func HashPassword(password, salt string) (string, string, error) {
	var rawSalt []byte
	if salt == "" {
		rawSalt = make([]byte, SaltLength)
		if _, err := rand.Read(rawSalt); err != nil {
			return "", "", fmt.Errorf("generating salt: %w", err)
		}
		salt = encode(rawSalt)
	} else {
		var err error
		rawSalt, err = decode(salt)
		if err != nil || len(rawSalt) == 0 {
			return "", "", ErrInvalidSalt
		}
	}

	key := pbkdf2.Key([]byte(password), rawSalt, HashIterations, KeyLength, sha256.New)
	return encode(key), salt, nil
}

// VerifyPassword checks whether password matches the stored hash and salt.
// Uses constant-time comparison to prevent timing attacks.
func VerifyPassword(password, hash, salt string) bool {
	want, err := decode(hash)
	if err != nil || len(want) == 0 {
		return false
	}

	candidate, _, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	got, err := decode(candidate)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(want, got) == 1
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// decode accepts both padded and unpadded base64url input.
func decode(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
