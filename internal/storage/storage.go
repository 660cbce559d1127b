// Package storage defines the record store backing a vault and provides
// the built-in implementations: in-memory, one-file-per-record, and SQLite.
//
// A Store holds a handful of small opaque records (vault metadata,
// ciphertext, backup) under fixed string keys. All values are already
// encrypted by the time they reach a Store; implementations never see
// plaintext.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("record not found")

// Store persists opaque vault records under string keys.
// Implementations must be safe for concurrent use. Removing an absent
// key is not an error.
type Store interface {
	// Get returns the record stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any existing record.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes the record under key if present.
	Remove(ctx context.Context, key string) error
}
