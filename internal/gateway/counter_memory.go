package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryCounterStore implements CounterStore with an in-process map. Used in
// tests and single-instance deployments without Redis.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
}

type memoryCounter struct {
	count       int64
	windowStart time.Time
}

// NewMemoryCounterStore creates an empty in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]*memoryCounter)}
}

// Increment charges the (key, window) counter for the window containing now.
// The counter resets whenever the window containing now has moved on.
func (s *MemoryCounterStore) Increment(_ context.Context, keyID string, window Window, now time.Time) (int64, error) {
	duration := window.Duration()
	windowStart := now.Truncate(duration)
	key := fmt.Sprintf("%s:%s", keyID, window)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || now.Sub(c.windowStart) >= duration {
		c = &memoryCounter{windowStart: windowStart}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}
