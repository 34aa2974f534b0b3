// Package cache holds the short-lived key/value stores used in front of the
// database: an in-process map for single-node installs and Redis for shared ones.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps failures talking to the backing store.
var ErrUnavailable = errors.New("cache unavailable")

// Store is a byte-oriented TTL cache.
type Store interface {
	// Get returns the value and true on a hit. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
