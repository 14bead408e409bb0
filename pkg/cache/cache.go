// Package cache provides the hybrid caching layer for seoforge: a durable
// Redis backend with an automatic in-process fallback, a stats-tracking
// Store facade over both, and the cache-aside helpers used by the SERP
// orchestrator, content generator and rate limiter.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a backend when a key is not present
var ErrNotFound = errors.New("key not found in cache")

// Backend is a byte store with per-key TTLs. Implementations must be safe
// for concurrent use and must return exactly the bytes previously stored
// for a key, with no added metadata or re-encoding.
type Backend interface {
	// Get returns the stored bytes, or ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes every key matching a glob pattern
	// (e.g. "seoforge:serp:*").
	DeleteByPattern(ctx context.Context, pattern string) error

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Increment atomically increments the counter at key and returns the
	// new value. The TTL is applied only when the counter is created
	// (new value == 1), so repeated increments never extend a window.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Close releases backend resources.
	Close() error
}
