package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryBucket struct {
	hits   []time.Time
	window time.Duration
}

// MemoryStore keeps request timestamps per key in process memory. State is
// lost on restart and not shared between replicas. Keys whose newest hit
// has left its window are swept at most once per window.
type MemoryStore struct {
	mu        sync.Mutex
	windows   map[string]memoryBucket
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]memoryBucket)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration, max int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now, window)

	ts := evict(s.windows[key].hits, now.Add(-window))
	if len(ts) >= max {
		s.windows[key] = memoryBucket{hits: ts, window: window}
		return false, nil
	}
	s.windows[key] = memoryBucket{hits: append(ts, now), window: window}
	return true, nil
}

// sweep drops idle keys. Each key is judged against the window it was last
// hit with, so limiters with different windows can share a store.
func (s *MemoryStore) sweep(now time.Time, window time.Duration) {
	if now.Sub(s.lastSweep) < window {
		return
	}
	s.lastSweep = now
	for k, b := range s.windows {
		if len(b.hits) == 0 || !b.hits[len(b.hits)-1].After(now.Add(-b.window)) {
			delete(s.windows, k)
		}
	}
}

// Count returns the number of live entries for key.
func (s *MemoryStore) Count(key string, now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.windows[key]
	if !ok {
		return 0
	}
	ts := evict(b.hits, now.Add(-window))
	if len(ts) == 0 {
		delete(s.windows, key)
		return 0
	}
	s.windows[key] = memoryBucket{hits: ts, window: b.window}
	return len(ts)
}

// Len is the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// evict drops timestamps at or before cutoff. Timestamps are appended in
// order, so the live entries are a suffix.
func evict(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(ts); i++ {
		if ts[i].After(cutoff) {
			break
		}
	}
	return ts[i:]
}
