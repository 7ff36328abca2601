package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammiranda/category_service/config"
	"github.com/ammiranda/category_service/models"
)

// RedisCache implements Provider using Redis
type RedisCache struct {
	client *redis.Client
	ttl    atomic.Int64
}

// NewRedisCache creates a Redis cache provider. REDIS_URL takes precedence;
// otherwise REDIS_HOST, REDIS_PORT and REDIS_PASSWORD are used.
func NewRedisCache(ctx context.Context, cfgProvider config.Provider) (*RedisCache, error) {
	if url, err := cfgProvider.GetString(ctx, "REDIS_URL"); err == nil {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return NewRedisCacheWithClient(redis.NewClient(opt)), nil
	}

	host, err := cfgProvider.GetString(ctx, "REDIS_HOST")
	if err != nil {
		host = "localhost"
	}
	port, err := cfgProvider.GetString(ctx, "REDIS_PORT")
	if err != nil {
		port = "6379"
	}
	password, _ := cfgProvider.GetSecret(ctx, "REDIS_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})
	return NewRedisCacheWithClient(client), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	c := &RedisCache{client: client}
	c.ttl.Store(int64(DefaultTTL))
	return c
}

// Initialize checks the connection
func (c *RedisCache) Initialize(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetForest retrieves the forest from cache if available
func (c *RedisCache) GetForest(ctx context.Context) ([]*models.Category, bool) {
	data, err := c.client.Get(ctx, forestKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "redis cache read failed", "error", err)
		}
		return nil, false
	}

	var forest []*models.Category
	if err := json.Unmarshal(data, &forest); err != nil {
		return nil, false
	}
	return forest, true
}

// SetForest stores the forest in cache
func (c *RedisCache) SetForest(ctx context.Context, forest []*models.Category) {
	data, err := json.Marshal(forest)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, forestKey, data, time.Duration(c.ttl.Load())).Err(); err != nil {
		slog.WarnContext(ctx, "redis cache write failed", "error", err)
	}
}

// Invalidate removes the forest from cache
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, forestKey).Err()
}

// SetTTL sets the cache time-to-live duration
func (c *RedisCache) SetTTL(ttl time.Duration) {
	c.ttl.Store(int64(ttl))
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
