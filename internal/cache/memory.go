package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an expiring in-process score cache
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache. A ttl of zero keeps entries until
// Clear.
func NewMemoryCache(ttl time.Duration, cleanupInterval time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryCache{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// Get retrieves a score
func (c *MemoryCache) Get(key string) (float64, bool) {
	if val, found := c.cache.Get(key); found {
		return val.(float64), true
	}
	return 0, false
}

// Set stores a score with the default TTL
func (c *MemoryCache) Set(key string, score float64) {
	c.cache.SetDefault(key, score)
}

// Clear removes all scores
func (c *MemoryCache) Clear() {
	c.cache.Flush()
}

// Len returns the number of cached scores, including expired ones not yet
// cleaned up
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
