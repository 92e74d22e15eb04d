// Package cache provides generic, thread-safe cache implementations.
//
// Two cache types are offered: SimpleCache (no eviction) and TTLCache
// (time-based eviction with a background cleanup goroutine). All
// implementations are thread-safe with built-in statistics.
package cache

import (
	"errors"
	"time"
)

// ErrEmptyKey is returned when an empty key is used.
var ErrEmptyKey = errors.New("cache: key cannot be empty")

// Cache represents a generic cache interface that all cache implementations
// must satisfy. The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found,
	// zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry was
	// created, false if updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns a slice of all keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics.
	Stats() *Statistics

	// Close shuts down the cache and releases any resources.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// Entry represents an entry in the cache with metadata.
type Entry[V any] struct {
	Key       string
	Value     V
	CreatedAt time.Time
	ExpiresAt *time.Time // nil means no expiration
}

// IsExpired checks if the entry has expired based on the current time.
func (e *Entry[V]) IsExpired() bool {
	if e.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*e.ExpiresAt)
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
