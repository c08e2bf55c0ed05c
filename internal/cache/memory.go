package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is a size-bounded in-process cache. Entries expire after the
// shorter of the per-entry TTL and the cache-wide TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
	ttl time.Duration
	now func() time.Time
}

// NewMemoryCache creates a cache holding at most maxItems entries.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, memoryEntry](maxItems, nil, ttl),
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached value for key.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return entry.data, true, nil
}

// Set stores value under key.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{data: value}
	if ttl <= 0 || (m.ttl > 0 && ttl > m.ttl) {
		ttl = m.ttl
	}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.lru.Add(key, entry)
	return nil
}

// Len returns the number of live entries.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}
