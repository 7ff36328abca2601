package config

import (
	"context"
	"time"
)

// ServiceConfig holds the non-database settings of the category service.
// Every field has a default, so a missing key is never an error.
type ServiceConfig struct {
	StoreDriver string
	SQLitePath  string
	MaxRetries  int
	CacheDriver string
	CacheTTL    time.Duration
	HTTPAddr    string
	LogLevel    string
	LogFormat   string
}

var validStoreDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true}

var validCacheDrivers = map[string]bool{"none": true, "memory": true, "redis": true, "dynamodb": true}

// DefaultServiceConfig returns the settings used when nothing is configured.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		StoreDriver: "sqlite",
		MaxRetries:  3,
		CacheDriver: "memory",
		CacheTTL:    5 * time.Minute,
		HTTPAddr:    ":8080",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Validate checks the service configuration
func (c *ServiceConfig) Validate() error {
	if !validStoreDrivers[c.StoreDriver] {
		return &ValidationError{Field: "STORE_DRIVER", Message: "must be one of memory, sqlite, postgres"}
	}
	if !validCacheDrivers[c.CacheDriver] {
		return &ValidationError{Field: "CACHE_DRIVER", Message: "must be one of none, memory, redis, dynamodb"}
	}
	if c.MaxRetries < 0 {
		return &ValidationError{Field: "MAX_RETRIES", Message: "cannot be negative"}
	}
	if c.CacheTTL <= 0 {
		return &ValidationError{Field: "CACHE_TTL", Message: "must be positive"}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return &ValidationError{Field: "LOG_FORMAT", Message: "must be text or json"}
	}
	return nil
}

// GetServiceConfig reads the service configuration from provider, keeping
// the default for every key that is absent or malformed.
func GetServiceConfig(ctx context.Context, provider Provider) (*ServiceConfig, error) {
	cfg := DefaultServiceConfig()

	if v, err := provider.GetString(ctx, "STORE_DRIVER"); err == nil {
		cfg.StoreDriver = v
	}
	if v, err := provider.GetString(ctx, "SQLITE_PATH"); err == nil {
		cfg.SQLitePath = v
	}
	if v, err := provider.GetInt(ctx, "MAX_RETRIES"); err == nil {
		cfg.MaxRetries = v
	}
	if v, err := provider.GetString(ctx, "CACHE_DRIVER"); err == nil {
		cfg.CacheDriver = v
	}
	if v, err := provider.GetDuration(ctx, "CACHE_TTL"); err == nil {
		cfg.CacheTTL = v
	}
	if v, err := provider.GetString(ctx, "HTTP_ADDR"); err == nil {
		cfg.HTTPAddr = v
	}
	if v, err := provider.GetString(ctx, "LOG_LEVEL"); err == nil {
		cfg.LogLevel = v
	}
	if v, err := provider.GetString(ctx, "LOG_FORMAT"); err == nil {
		cfg.LogFormat = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
