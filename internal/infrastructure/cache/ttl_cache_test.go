package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_GetSet(t *testing.T) {
	now := time.Now()
	cache := NewTTLCache[[]string](time.Minute).WithClock(func() time.Time { return now })

	_, ok := cache.Get("outlets")
	assert.False(t, ok, "empty cache has no entries")

	cache.Set("outlets", []string{"A", "B"})

	value, ok := cache.Get("outlets")
	assert.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, value)
}

func TestTTLCache_EntriesExpire(t *testing.T) {
	now := time.Now()
	cache := NewTTLCache[int](time.Minute).WithClock(func() time.Time { return now })

	cache.Set("k", 42)

	now = now.Add(59 * time.Second)
	_, ok := cache.Get("k")
	assert.True(t, ok, "entry is still live just before the TTL")

	now = now.Add(2 * time.Second)
	_, ok = cache.Get("k")
	assert.False(t, ok, "entry is gone after the TTL")
}

func TestTTLCache_SetRefreshesTTL(t *testing.T) {
	now := time.Now()
	cache := NewTTLCache[int](time.Minute).WithClock(func() time.Time { return now })

	cache.Set("k", 1)
	now = now.Add(50 * time.Second)
	cache.Set("k", 2)
	now = now.Add(50 * time.Second)

	value, ok := cache.Get("k")
	assert.True(t, ok, "rewrite restarts the clock")
	assert.Equal(t, 2, value)
}

func TestTTLCache_Invalidate(t *testing.T) {
	cache := NewTTLCache[string](time.Minute)

	cache.Set("k", "v")
	cache.Invalidate("k")

	_, ok := cache.Get("k")
	assert.False(t, ok)
}
