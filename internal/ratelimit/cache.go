package ratelimit

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Cache holds one Limiter per GitHub account. GitHub enforces limits per
// token, so every client using the same token must share the same budget;
// the composition root asks the cache for the account's limiter instead of
// building its own.
//
// Evicted limiters are dropped but not closed, so clients still holding one
// keep a working budget gate. A key requested again after eviction gets a
// new limiter with an empty budget; size the cache to the number of
// accounts in use. Purge closes the limiters still cached.
type Cache struct {
	limiters *lru.Cache
	config   Config
	mu       sync.RWMutex
}

// NewCache creates a cache holding at most maxAccounts limiters, each built
// from cfg.
func NewCache(cfg Config, maxAccounts int) *Cache {
	if maxAccounts < 1 {
		maxAccounts = 1
	}
	limiters, _ := lru.New(maxAccounts)

	return &Cache{
		limiters: limiters,
		config:   cfg,
	}
}

// Get returns the limiter for key, creating it if necessary.
func (c *Cache) Get(key string) *Limiter {
	c.mu.RLock()
	l, exists := c.limiters.Get(key)
	c.mu.RUnlock()

	if exists {
		return l.(*Limiter)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check if the limiter was added by another goroutine
	if l, exists := c.limiters.Get(key); exists {
		return l.(*Limiter)
	}

	limiter := NewLimiter(c.config)
	c.limiters.Add(key, limiter)
	return limiter
}

// Len returns the number of cached limiters.
func (c *Cache) Len() int {
	return c.limiters.Len()
}

// Purge closes and removes every limiter.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.limiters.Keys() {
		if l, ok := c.limiters.Peek(key); ok {
			l.(*Limiter).Close()
		}
	}
	c.limiters.Purge()
}
