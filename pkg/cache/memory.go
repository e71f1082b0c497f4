// Package cache provides time-boxed memoization stores for computed
// intelligence results: a lazy-expiry in-memory store and an optional
// SQLite-backed store for deployments that want the cache to survive
// restarts. Correctness relies on lazy invalidation only; there is no
// background sweep and no eviction beyond expiry.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the write-time expiry applied when no TTL is configured.
const DefaultTTL = 300 * time.Second

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Memory is an in-memory TTL cache. Expired entries are treated as misses
// and deleted on read. Safe for concurrent use.
type Memory[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
}

// MemoryOption customizes a Memory cache.
type MemoryOption[V any] func(*Memory[V])

// WithClock overrides the time source, for tests.
func WithClock[V any](now func() time.Time) MemoryOption[V] {
	return func(m *Memory[V]) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an in-memory cache with the given TTL. A non-positive
// TTL falls back to DefaultTTL.
func NewMemory[V any](ttl time.Duration, opts ...MemoryOption[V]) *Memory[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached value for key, or a miss when the key is absent or
// expired. Expired entries are removed.
func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value under key with the cache's TTL applied at write time.
func (m *Memory[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry[V]{value: value, expiresAt: m.now().Add(m.ttl)}
}

// Delete removes a key. Deleting an absent key is a no-op.
func (m *Memory[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len returns the number of stored entries, including not-yet-collected
// expired ones.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
