// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import "sync"

// Cache stores successful lookup results keyed by normalized author name.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (Result, bool)
	Put(key string, r Result)
	Clear()
	Len() int
}

// MemoryCache is a process-lifetime Cache with no expiry and no size bound.
// Entries are dropped only by Clear.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Result)}
}

// Get returns the cached result for key.
func (c *MemoryCache) Get(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

// Put stores r under key, replacing any earlier entry.
func (c *MemoryCache) Put(key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = r
}

// Clear removes every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Result)
}

// Len returns the number of cached names.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
