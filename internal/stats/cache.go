package stats

import "sync"

// Cache memoizes derived views for a single dataset revision. A lookup with a
// different revision drops everything computed for the previous one.
type Cache struct {
	mu       sync.Mutex
	revision uint64
	entries  map[string]any
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Memo returns the cached value for (revision, key) or computes and stores it.
func Memo[T any](c *Cache, revision uint64, key string, compute func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil || c.revision != revision {
		c.entries = make(map[string]any)
		c.revision = revision
	}
	if v, ok := c.entries[key]; ok {
		if typed, ok := v.(T); ok {
			return typed
		}
	}
	v := compute()
	c.entries[key] = v
	return v
}

// Len reports how many views are cached for the current revision.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
