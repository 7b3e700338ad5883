package cache

import (
	"sync"
	"time"
)

// TTLCache is a small keyed cache with per-entry expiry. The catalog
// service uses it for outlet and product lists; values are stored as
// whole slices and replaced wholesale.
type TTLCache[T any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]ttlEntry[T]
	now     func() time.Time
}

type ttlEntry[T any] struct {
	expires time.Time
	value   T
}

// NewTTLCache creates a cache whose entries live for ttl
func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{
		ttl:     ttl,
		entries: make(map[string]ttlEntry[T]),
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests
func (c *TTLCache[T]) WithClock(now func() time.Time) *TTLCache[T] {
	c.now = now
	return c
}

// Get returns the live value for key, if any
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expires) {
		var zero T
		return zero, false
	}
	return entry.value, true
}

// Set stores a value under key with a fresh TTL
func (c *TTLCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry[T]{
		expires: c.now().Add(c.ttl),
		value:   value,
	}
}

// Invalidate removes the entry for key
func (c *TTLCache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
