package cache

import "sync/atomic"

// Statistics tracks cache effectiveness with atomic counters.
// Always enabled for observability.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
	size      atomic.Int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Hit records a cache hit.
func (s *Statistics) Hit() { s.hits.Add(1) }

// Miss records a cache miss.
func (s *Statistics) Miss() { s.misses.Add(1) }

// Set records a cache write.
func (s *Statistics) Set() { s.sets.Add(1) }

// Eviction records an entry eviction.
func (s *Statistics) Eviction() { s.evictions.Add(1) }

// UpdateSize records the current entry count.
func (s *Statistics) UpdateSize(n int64) { s.size.Store(n) }

// Hits returns the total number of cache hits.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the total number of cache misses.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Sets returns the total number of cache writes.
func (s *Statistics) Sets() int64 { return s.sets.Load() }

// Evictions returns the total number of evictions.
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// Size returns the last recorded entry count.
func (s *Statistics) Size() int64 { return s.size.Load() }

// HitRate returns the fraction of lookups served from cache, 0 when no lookups.
func (s *Statistics) HitRate() float64 {
	hits := s.hits.Load()
	total := hits + s.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
