package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps windows in a process-local map.
type MemoryStore struct {
	mu        sync.Mutex
	items     map[string]Window
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Window),
		now:   time.Now,
	}
}

func (s *MemoryStore) Hit(_ context.Context, identity string, window time.Duration) (Window, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now, window)

	curr, ok := s.items[identity]
	if !ok || !now.Before(curr.ResetAt) {
		curr = Window{
			Count:   0,
			Start:   now,
			ResetAt: now.Add(window),
		}
	}
	curr.Count++
	s.items[identity] = curr
	return curr, nil
}

// Len reports how many windows are tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// sweep drops elapsed windows, at most once per window length.
func (s *MemoryStore) sweep(now time.Time, window time.Duration) {
	if now.Sub(s.lastSweep) < window {
		return
	}
	s.lastSweep = now
	for k, v := range s.items {
		if !now.Before(v.ResetAt) {
			delete(s.items, k)
		}
	}
}
