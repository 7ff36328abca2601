package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretRefresh is how long fetched secrets are served from memory.
const secretRefresh = 10 * time.Minute

// SecretsAPI is the part of the Secrets Manager client the provider uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsProvider implements Provider using AWS Secrets Manager. The
// secret is a JSON object of string values; non-secret keys missing from it
// fall back to environment variables.
type AWSSecretsProvider struct {
	typed
	client      SecretsAPI
	secretName  string
	env         Provider
	environment Environment

	mu        sync.Mutex
	cache     map[string]string
	lastFetch time.Time
}

// NewAWSConfigProvider creates a provider for the secret named by
// AWS_SECRET_NAME.
func NewAWSConfigProvider(ctx context.Context) (Provider, error) {
	secretName := os.Getenv("AWS_SECRET_NAME")
	if secretName == "" {
		return nil, fmt.Errorf("AWS_SECRET_NAME environment variable not set")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewAWSSecretsProvider(secretsmanager.NewFromConfig(cfg), secretName), nil
}

// NewAWSSecretsProvider creates a Secrets Manager based provider with a
// custom client
func NewAWSSecretsProvider(client SecretsAPI, secretName string) *AWSSecretsProvider {
	p := &AWSSecretsProvider{
		client:      client,
		secretName:  secretName,
		env:         NewEnvProvider(""),
		environment: currentEnvironment(),
	}
	p.typed = typed{get: p.GetString}
	return p
}

// GetEnvironment returns the current environment
func (p *AWSSecretsProvider) GetEnvironment() Environment {
	return p.environment
}

func (p *AWSSecretsProvider) secrets(ctx context.Context) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache != nil && time.Since(p.lastFetch) < secretRefresh {
		return p.cache, nil
	}

	secret, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	if secret.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", p.secretName)
	}

	var secretMap map[string]string
	if err := json.Unmarshal([]byte(*secret.SecretString), &secretMap); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}
	if err := validateSecretSchema(secretMap, p.environment); err != nil {
		return nil, fmt.Errorf("invalid secret schema: %w", err)
	}

	p.cache = secretMap
	p.lastFetch = time.Now()
	return secretMap, nil
}

// GetString retrieves a string configuration value from AWS Secrets Manager
func (p *AWSSecretsProvider) GetString(ctx context.Context, key string) (string, error) {
	secrets, err := p.secrets(ctx)
	if err != nil {
		return "", err
	}
	if value, ok := secrets[key]; ok {
		return value, nil
	}
	return p.env.GetString(ctx, key)
}

// GetSecret retrieves a secret value; secrets never fall back to the
// environment.
func (p *AWSSecretsProvider) GetSecret(ctx context.Context, key string) (string, error) {
	secrets, err := p.secrets(ctx)
	if err != nil {
		return "", err
	}
	value, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("secret key %s not found", key)
	}
	return value, nil
}

var validSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

var passwordRules = []struct {
	pattern *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`[A-Z]`), "password must contain at least one uppercase letter in production"},
	{regexp.MustCompile(`[a-z]`), "password must contain at least one lowercase letter in production"},
	{regexp.MustCompile(`[0-9]`), "password must contain at least one number in production"},
	{regexp.MustCompile(`[^A-Za-z0-9]`), "password must contain at least one special character in production"},
}

// validateProductionPassword applies the production password policy.
func validateProductionPassword(field, password string) error {
	if len(password) < 12 {
		return &ValidationError{Field: field, Message: "password must be at least 12 characters long in production"}
	}
	for _, rule := range passwordRules {
		if !rule.pattern.MatchString(password) {
			return &ValidationError{Field: field, Message: rule.message}
		}
	}
	return nil
}

// validateSecretSchema validates the structure of secrets stored in AWS Secrets Manager
func validateSecretSchema(secrets map[string]string, env Environment) error {
	requiredKeys := []string{
		"DB_HOST",
		"DB_PORT",
		"DB_USER",
		"DB_PASSWORD",
		"DB_NAME",
		"DB_SSLMODE",
	}
	for _, key := range requiredKeys {
		if _, ok := secrets[key]; !ok {
			return &ValidationError{Field: key, Message: "required secret key not found"}
		}
	}

	if _, err := strconv.Atoi(secrets["DB_PORT"]); err != nil {
		return &ValidationError{Field: "DB_PORT", Message: "port must be a valid number"}
	}
	if !validSSLModes[secrets["DB_SSLMODE"]] {
		return &ValidationError{Field: "DB_SSLMODE", Message: "invalid SSL mode"}
	}

	if env == Production {
		if strings.ToLower(secrets["DB_HOST"]) == "localhost" {
			return &ValidationError{Field: "DB_HOST", Message: "localhost is not allowed in production"}
		}
		if secrets["DB_SSLMODE"] == "disable" {
			return &ValidationError{Field: "DB_SSLMODE", Message: "SSL cannot be disabled in production"}
		}
		if err := validateProductionPassword("DB_PASSWORD", secrets["DB_PASSWORD"]); err != nil {
			return err
		}
	}
	return nil
}
