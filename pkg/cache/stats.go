package cache

import (
	"sync/atomic"
)

// CacheStats is a point-in-time snapshot of the store's counters. HitRate is
// a percentage of total requests; it is 0 when nothing has been requested.
type CacheStats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Errors        int64   `json:"errors"`
	TotalRequests int64   `json:"totalRequests"`
	HitRate       float64 `json:"hitRate"`
}

// Stats accumulates process-wide cache counters. Counters only ever grow;
// Reset is an explicit administrative action.
type Stats struct {
	hits          atomic.Int64
	misses        atomic.Int64
	errors        atomic.Int64
	totalRequests atomic.Int64
}

// NewStats creates a zeroed counter set
func NewStats() *Stats {
	return &Stats{}
}

// RecordRequest counts one read against the store
func (s *Stats) RecordRequest() {
	s.totalRequests.Add(1)
}

// RecordHit counts a cache hit
func (s *Stats) RecordHit() {
	s.hits.Add(1)
}

// RecordMiss counts a cache miss
func (s *Stats) RecordMiss() {
	s.misses.Add(1)
}

// RecordError counts a backend error
func (s *Stats) RecordError() {
	s.errors.Add(1)
}

// Snapshot returns the current counter values
func (s *Stats) Snapshot() CacheStats {
	total := s.totalRequests.Load()
	hits := s.hits.Load()

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return CacheStats{
		Hits:          hits,
		Misses:        s.misses.Load(),
		Errors:        s.errors.Load(),
		TotalRequests: total,
		HitRate:       hitRate,
	}
}

// Reset zeroes all counters
func (s *Stats) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.errors.Store(0)
	s.totalRequests.Store(0)
}
