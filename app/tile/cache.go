package tile

import "sync"

// Cache stores encoded tiles by key. Implementations must be safe for concurrent use
// and must never expose a partially written entry.
type Cache interface {
	Lookup(key string) ([]byte, bool)
	Store(key string, data []byte)
	Len() int
}

// MemCache keeps every tile in memory for the lifetime of the process.
// Lookups share a read lock, stores take the write lock. There is no eviction.
type MemCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemCache makes an empty MemCache.
func NewMemCache() *MemCache {
	return &MemCache{entries: make(map[string][]byte)}
}

// Lookup returns the tile stored under key.
func (c *MemCache) Lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.entries[key]
	return data, ok
}

// Store puts data under key, replacing any previous entry. The last write wins.
func (c *MemCache) Store(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
}

// Len returns the number of cached tiles.
func (c *MemCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
