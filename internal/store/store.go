// Package store provides the key-value persistence layer. All core entities
// are JSON values under composite string keys; the store is the single
// source of truth and the rest of the system holds no authoritative
// in-memory state.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store errors.
var (
	ErrNotFound = errors.New("key not found")
)

// Store is the abstract key-value contract every backend implements.
type Store interface {
	// Get returns the raw value for a key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes a value. A non-zero ttl expires the key after the
	// duration; zero means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all keys starting with the prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// GetJSON reads a key and unmarshals it into out. Returns ErrNotFound when
// the key is absent.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode value at %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals value and writes it under key without expiration.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	return SetJSONTTL(ctx, s, key, value, 0)
}

// SetJSONTTL marshals value and writes it under key with a TTL.
func SetJSONTTL(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	if err := s.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
