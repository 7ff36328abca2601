// Package cache stores the rendered category forest between structural
// changes.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ammiranda/category_service/config"
	"github.com/ammiranda/category_service/models"
)

// DefaultTTL is used until SetTTL is called.
const DefaultTTL = 5 * time.Minute

// forestKey is the single key the forest is stored under.
const forestKey = "category:forest"

// Provider defines the interface for cache implementations.
//
// A cached forest is only valid until the next structural change; callers
// invalidate it after every successful mutation. Reads that fail are
// reported as misses.
type Provider interface {
	// GetForest returns the cached forest and whether it was found.
	GetForest(ctx context.Context) ([]*models.Category, bool)

	// SetForest stores the forest for the configured TTL.
	SetForest(ctx context.Context, forest []*models.Category)

	// Invalidate removes the cached forest.
	Invalidate(ctx context.Context) error

	// SetTTL sets the time-to-live of entries stored from now on.
	SetTTL(ttl time.Duration)

	// Initialize performs any necessary setup for the cache provider,
	// such as checking connectivity or creating the backing table.
	Initialize(ctx context.Context) error
}

// NewProvider builds the provider selected by cfg.CacheDriver. With the
// default memory driver, a configured REDIS_HOST switches to Redis.
// The provider is initialized and its TTL applied.
func NewProvider(ctx context.Context, cfg *config.ServiceConfig, cfgProvider config.Provider) (Provider, error) {
	driver := cfg.CacheDriver
	if driver == "memory" {
		if _, err := cfgProvider.GetString(ctx, "REDIS_HOST"); err == nil {
			driver = "redis"
		}
	}

	var p Provider
	switch driver {
	case "none":
		p = NoopCache{}
	case "memory":
		p = NewMemoryCache()
	case "redis":
		rc, err := NewRedisCache(ctx, cfgProvider)
		if err != nil {
			return nil, err
		}
		p = rc
	case "dynamodb":
		dc, err := NewDynamoDBCache(ctx)
		if err != nil {
			return nil, err
		}
		p = dc
	default:
		return nil, fmt.Errorf("unknown cache driver %q", driver)
	}

	p.SetTTL(cfg.CacheTTL)
	if err := p.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s cache: %w", driver, err)
	}
	return p, nil
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) GetForest(context.Context) ([]*models.Category, bool) { return nil, false }
func (NoopCache) SetForest(context.Context, []*models.Category)        {}
func (NoopCache) Invalidate(context.Context) error                     { return nil }
func (NoopCache) SetTTL(time.Duration)                                 {}
func (NoopCache) Initialize(context.Context) error                     { return nil }
