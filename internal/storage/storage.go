// Package storage provides the key-value capability the workflow store
// persists runs into.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// KV is a flat string-keyed byte store. Writes to an existing key replace
// the value (last write wins). Keys are never removed: finished runs stay
// listed with completed=true.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Keys returns every key with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
