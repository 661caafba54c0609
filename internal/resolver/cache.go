package resolver

import (
	"sync"
	"time"
)

// recordCache is a short-TTL cache of per-scope record sets, bounding
// upstream load when many chatbots share a scope. A zero TTL disables
// caching entirely.
type recordCache[T any] struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry[T]
}

type cacheEntry[T any] struct {
	value   T
	expires time.Time
}

func newRecordCache[T any](ttl time.Duration) *recordCache[T] {
	return &recordCache[T]{
		ttl:     ttl,
		entries: make(map[string]cacheEntry[T]),
	}
}

func (c *recordCache[T]) get(key string) (T, bool) {
	var zero T
	if c.ttl <= 0 {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

func (c *recordCache[T]) set(key string, value T) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[T]{value: value, expires: time.Now().Add(c.ttl)}
}
