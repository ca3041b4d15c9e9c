package service

import (
	"sync"
	"time"
)

// Cache holds one value for ttl. A zero or expired entry reads as a miss.
type Cache[T any] struct {
	mu       sync.RWMutex
	value    T
	cached   bool
	cachedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl, now: time.Now}
}

func (c *Cache[T]) Get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.cached || c.now().Sub(c.cachedAt) > c.ttl {
		var zero T
		return zero, false
	}
	return c.value, true
}

func (c *Cache[T]) Set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.cached = true
	c.cachedAt = c.now()
}

func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.cached = false
}
