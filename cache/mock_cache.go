package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ammiranda/category_service/models"
)

// Operations recorded by MockCache.
const (
	OpHit        = "hit"
	OpMiss       = "miss"
	OpSet        = "set"
	OpInvalidate = "invalidate"
)

// ErrCacheUnavailable is a ready-made failure for MockCache.InvalidateErr.
var ErrCacheUnavailable = errors.New("mock cache unavailable")

// MockCache keeps the forest in memory without expiry and logs every read,
// write and invalidation in call order, so tests can assert exactly when a
// service touches its cache.
type MockCache struct {
	mu     sync.Mutex
	forest []*models.Category
	ttl    time.Duration
	ops    []string

	// InvalidateErr, when set, is returned by Invalidate and the cached
	// forest is kept.
	InvalidateErr error
}

// NewMockCache creates an empty mock cache.
func NewMockCache() *MockCache {
	return &MockCache{ttl: DefaultTTL}
}

func (c *MockCache) Initialize(ctx context.Context) error {
	return nil
}

func (c *MockCache) GetForest(ctx context.Context) ([]*models.Category, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.forest == nil {
		c.ops = append(c.ops, OpMiss)
		return nil, false
	}
	c.ops = append(c.ops, OpHit)
	return c.forest, true
}

func (c *MockCache) SetForest(ctx context.Context, forest []*models.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, OpSet)
	c.forest = forest
}

func (c *MockCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, OpInvalidate)
	if c.InvalidateErr != nil {
		return c.InvalidateErr
	}
	c.forest = nil
	return nil
}

func (c *MockCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// TTL returns the last TTL applied.
func (c *MockCache) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl
}

// Cached reports whether a forest is currently stored.
func (c *MockCache) Cached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forest != nil
}

// Ops returns the recorded operations since the last Reset.
func (c *MockCache) Ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ops...)
}

// Count returns how often op was recorded since the last Reset.
func (c *MockCache) Count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, o := range c.ops {
		if o == op {
			n++
		}
	}
	return n
}

// Reset clears the operation log. The cached forest is kept.
func (c *MockCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = nil
}
