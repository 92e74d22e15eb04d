package cache

import (
	"context"
	"sync"
	"time"
)

// ttlEntry represents an entry in the TTL cache.
type ttlEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *ttlEntry[V]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// ttlCache is a thread-safe TTL (Time-To-Live) cache implementation.
// It automatically evicts items when they expire based on their TTL.
type ttlCache[V any] struct {
	mu              sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
	items           map[string]*ttlEntry[V]
	stats           *Statistics
	evictFn         EvictCallback[V]

	shutdown  chan struct{}
	closeOnce sync.Once
}

// NewTTL creates a new TTL cache. A background cleanup goroutine runs every
// cleanupInterval until Close is called or ctx is cancelled.
func NewTTL[V any](ctx context.Context, ttl, cleanupInterval time.Duration, evictFn EvictCallback[V]) Cache[V] {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = ttl
	}

	c := &ttlCache[V]{
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		items:           make(map[string]*ttlEntry[V]),
		stats:           NewStatistics(),
		evictFn:         evictFn,
		shutdown:        make(chan struct{}),
	}

	go c.cleanup(ctx)

	return c
}

// Get retrieves a value by key, checking for expiration.
func (c *ttlCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		var zero V
		c.stats.Miss()
		return zero, false
	}

	if entry.isExpired() {
		c.mu.Lock()
		// Double-check it's still there and still expired
		if current, stillExists := c.items[key]; stillExists && current.isExpired() {
			delete(c.items, key)
			if c.evictFn != nil {
				defer c.evictFn(key, current.value)
			}
			c.stats.Eviction()
			c.stats.UpdateSize(int64(len(c.items)))
		}
		c.mu.Unlock()

		var zero V
		c.stats.Miss()
		return zero, false
	}

	c.stats.Hit()
	return entry.value, true
}

// Set stores a value with the given key and sets its expiration time.
func (c *ttlCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	expiresAt := time.Now().Add(c.ttl)

	c.mu.Lock()
	_, exists := c.items[key]
	c.items[key] = &ttlEntry[V]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	}
	size := len(c.items)
	c.mu.Unlock()

	c.stats.Set()
	c.stats.UpdateSize(int64(size))

	return !exists, nil
}

// Delete removes an entry by key.
func (c *ttlCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	_, exists := c.items[key]
	if exists {
		delete(c.items, key)
	}
	size := len(c.items)
	c.mu.Unlock()

	c.stats.UpdateSize(int64(size))
	return exists, nil
}

// Clear removes all entries from the cache.
func (c *ttlCache[V]) Clear() error {
	c.mu.Lock()
	c.items = make(map[string]*ttlEntry[V])
	c.mu.Unlock()

	c.stats.UpdateSize(0)
	return nil
}

// Size returns the current number of entries.
func (c *ttlCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns all keys currently in the cache.
func (c *ttlCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns cache statistics.
func (c *ttlCache[V]) Stats() *Statistics {
	return c.stats
}

// Close stops the background cleanup goroutine. Idempotent.
func (c *ttlCache[V]) Close() error {
	c.closeOnce.Do(func() {
		close(c.shutdown)
	})
	return nil
}

// cleanup periodically sweeps expired entries.
func (c *ttlCache[V]) cleanup(ctx context.Context) {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *ttlCache[V]) sweep() {
	type evicted struct {
		key   string
		value V
	}
	var expired []evicted

	c.mu.Lock()
	for key, entry := range c.items {
		if entry.isExpired() {
			delete(c.items, key)
			c.stats.Eviction()
			if c.evictFn != nil {
				expired = append(expired, evicted{key, entry.value})
			}
		}
	}
	c.stats.UpdateSize(int64(len(c.items)))
	c.mu.Unlock()

	// Run callbacks outside the lock
	for _, e := range expired {
		c.evictFn(e.key, e.value)
	}
}
