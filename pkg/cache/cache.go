package cache

import (
	"sync"
	"time"
)

// Observer is notified of cache lookups
type Observer interface {
	CacheHit(name string)
	CacheMiss(name string)
}

// Cache keeps values for a fixed TTL to reduce API calls
type Cache[T any] struct {
	name  string
	data  map[string]*cacheEntry[T]
	ttl   time.Duration
	obs   Observer
	now   func() time.Time
	mutex sync.RWMutex
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// New creates a cache. A ttl of zero disables caching.
func New[T any](name string, ttl time.Duration, obs Observer) *Cache[T] {
	return &Cache[T]{
		name: name,
		data: make(map[string]*cacheEntry[T]),
		ttl:  ttl,
		obs:  obs,
		now:  time.Now,
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	if c.ttl <= 0 {
		return zero, false
	}

	c.mutex.RLock()
	entry, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists || c.now().After(entry.expiresAt) {
		if exists {
			// Expired
			c.mutex.Lock()
			if cur, ok := c.data[key]; ok && cur == entry {
				delete(c.data, key)
			}
			c.mutex.Unlock()
		}
		if c.obs != nil {
			c.obs.CacheMiss(c.name)
		}
		return zero, false
	}

	if c.obs != nil {
		c.obs.CacheHit(c.name)
	}
	return entry.value, true
}

func (c *Cache[T]) Set(key string, value T) {
	if c.ttl <= 0 {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = &cacheEntry[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *Cache[T]) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
}

func (c *Cache[T]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*cacheEntry[T])
}

func (c *Cache[T]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.data)
}
