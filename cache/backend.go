package cache

import (
	"context"
	"time"
)

// Backend is a raw byte store with per-key expiry. Implementations must be
// safe for concurrent use.
//
// A ttl <= 0 stores the value without expiry.
type Backend interface {
	// Name identifies the backend in stats ("memory", "badger").
	Name() string

	// Get returns the stored bytes, or ok=false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes every key.
	Clear(ctx context.Context) error

	// Incr adds delta to the integer stored at key and returns the result.
	// An absent key counts as 0 and is created with ttl; an existing key
	// keeps its remaining lifetime.
	Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// Len returns the number of live keys.
	Len(ctx context.Context) (int, error)

	Close() error
}
