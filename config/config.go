package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment represents the application environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Provider defines the interface for configuration management
type Provider interface {
	// GetString retrieves a string configuration value
	GetString(ctx context.Context, key string) (string, error)
	// GetInt retrieves an integer configuration value
	GetInt(ctx context.Context, key string) (int, error)
	// GetBool retrieves a boolean configuration value
	GetBool(ctx context.Context, key string) (bool, error)
	// GetDuration retrieves a duration such as "5m" or "250ms"
	GetDuration(ctx context.Context, key string) (time.Duration, error)
	// GetSecret retrieves a secret value
	GetSecret(ctx context.Context, key string) (string, error)
	// GetEnvironment returns the current environment
	GetEnvironment() Environment
}

// currentEnvironment reads APP_ENV, defaulting to development.
func currentEnvironment() Environment {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = string(Development)
	}
	return Environment(env)
}

// typed derives the non-string getters from a string lookup. Parse
// failures name the key.
type typed struct {
	get func(ctx context.Context, key string) (string, error)
}

func (t typed) GetInt(ctx context.Context, key string) (int, error) {
	value, err := t.get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func (t typed) GetBool(ctx context.Context, key string) (bool, error) {
	value, err := t.get(ctx, key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

func (t typed) GetDuration(ctx context.Context, key string) (time.Duration, error) {
	value, err := t.get(ctx, key)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

// EnvProvider reads prefixed environment variables. A variable that is set
// but empty counts as missing.
type EnvProvider struct {
	typed
	prefix      string
	environment Environment
}

// NewEnvProvider creates a provider for variables named prefix+key.
func NewEnvProvider(prefix string) Provider {
	p := &EnvProvider{
		prefix:      prefix,
		environment: currentEnvironment(),
	}
	p.typed = typed{get: p.GetString}
	return p
}

func (p *EnvProvider) GetEnvironment() Environment {
	return p.environment
}

func (p *EnvProvider) GetString(ctx context.Context, key string) (string, error) {
	name := p.prefix + key
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value, nil
	}
	return "", fmt.Errorf("environment variable %s not set", name)
}

// GetSecret is GetString; the environment has no separate secret store.
func (p *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return p.GetString(ctx, key)
}
