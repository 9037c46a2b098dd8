package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how often expired windows are dropped from memory.
const sweepEvery = time.Minute

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in a mutex-guarded map. It is only correct for a
// single process.
type MemoryStore struct {
	mu        sync.Mutex
	data      map[string]window
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore creates a MemoryStore. A nil clock uses time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{data: make(map[string]window), now: clock}
}

func (s *MemoryStore) Incr(_ context.Context, key string, length time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepEvery {
		for k, w := range s.data {
			if !now.Before(w.resetAt) {
				delete(s.data, k)
			}
		}
		s.lastSweep = now
	}

	w, ok := s.data[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(length)}
	}
	w.count++
	s.data[key] = w
	return w.count, w.resetAt.Sub(now), nil
}

// Len returns the number of live counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
