// Package kv provides the key-value service behind users and invites.
//
// Three backends implement Store: an in-process map for local runs, the
// Upstash REST API, and a MySQL table. Every backend offers an atomic GetDel so
// one-time invites cannot be consumed twice.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is a string key-value service.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Del removes key and returns the number of keys removed.
	Del(ctx context.Context, key string) (int, error)
	// GetDel atomically reads and removes key.
	GetDel(ctx context.Context, key string) (string, bool, error)
	// Kind names the backend for diagnostics.
	Kind() string
}

// GetJSON decodes the JSON value stored under key into v. It reports false
// when the key does not exist.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v as compact JSON under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}
