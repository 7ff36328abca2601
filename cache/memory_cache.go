package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ammiranda/category_service/models"
)

// MemoryCache implements Provider with an in-process expiring LRU.
type MemoryCache struct {
	mu  sync.RWMutex
	lru *expirable.LRU[string, []*models.Category]
}

// NewMemoryCache creates a new in-memory cache provider
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, []*models.Category](1, nil, DefaultTTL),
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MemoryCache) Initialize(ctx context.Context) error {
	return nil
}

// GetForest retrieves the forest from cache if available
func (c *MemoryCache) GetForest(ctx context.Context) ([]*models.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Get(forestKey)
}

// SetForest stores the forest in cache
func (c *MemoryCache) SetForest(ctx context.Context, forest []*models.Category) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.lru.Add(forestKey, forest)
}

// Invalidate removes the cached forest
func (c *MemoryCache) Invalidate(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.lru.Remove(forestKey)
	return nil
}

// SetTTL replaces the underlying LRU, since its TTL is fixed at creation.
// Cached entries are dropped.
func (c *MemoryCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru = expirable.NewLRU[string, []*models.Category](1, nil, ttl)
}
