// Package config loads the engine's environment-driven configuration (§6),
// grounded on the teacher's getEnv*/Validate() pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every environment-driven setting named in spec §6, plus the
// ambient additions (cache backend, optional auth, DynamoDB region) a
// faithful rewrite carries.
type Config struct {
	// HTTP surface
	Port        int
	BindAddress string
	Environment string

	// Backing store (§6): memory | file://<path> | ws://host:port, plus
	// the additive dynamodb://<table> scheme.
	DatabaseURL string

	// Embedding client (C3, §6)
	EmbeddingProvider     string
	EmbeddingServiceURL   string
	EmbeddingModel        string
	MaxEmbeddingDimension int
	EmbeddingConcurrency  int

	// Episodic cache backend: memory | redis
	CacheBackend string
	RedisURL     string

	// Optional bearer auth, off by default
	AuthRequired bool
	JWTSecret    string
	JWTIssuer    string

	// Used only when DatabaseURL is dynamodb://
	AWSRegion string

	LogLevel string
}

// Load reads configuration from the environment, applying the defaults
// named in spec §6.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8105),
		BindAddress: getEnv("BIND_ADDRESS", "127.0.0.1"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", "memory"),

		EmbeddingProvider:     getEnv("EMBEDDING_PROVIDER", "none"),
		EmbeddingServiceURL:   getEnv("EMBEDDING_SERVICE_URL", ""),
		EmbeddingModel:        getEnv("EMBEDDING_MODEL", ""),
		MaxEmbeddingDimension: getEnvInt("MAX_EMBEDDING_DIMENSION", 1536),
		EmbeddingConcurrency:  getEnvInt("EMBEDDING_CONCURRENCY", 4),

		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		RedisURL:     getEnv("REDIS_URL", ""),

		AuthRequired: getEnvBool("AUTH_REQUIRED", false),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", "amp"),

		AWSRegion: getEnv("AWS_REGION", "us-west-2"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServerAddress is the listen address chi/net-http binds to.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// Validate enforces the bounds named in spec §6/§7.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be in [1,65535], got %d", c.Port)
	}
	if c.MaxEmbeddingDimension < 1 || c.MaxEmbeddingDimension > 10000 {
		return fmt.Errorf("MAX_EMBEDDING_DIMENSION must be in [1,10000], got %d", c.MaxEmbeddingDimension)
	}
	switch c.EmbeddingProvider {
	case "none", "ollama", "openai":
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER: %s", c.EmbeddingProvider)
	}
	scheme := c.DatabaseURL
	if !(scheme == "memory" || strings.HasPrefix(scheme, "file://") || strings.HasPrefix(scheme, "ws://") || strings.HasPrefix(scheme, "dynamodb://")) {
		return fmt.Errorf("unsupported DATABASE_URL scheme: %s", scheme)
	}
	if c.CacheBackend != "memory" && c.CacheBackend != "redis" {
		return fmt.Errorf("unknown CACHE_BACKEND: %s", c.CacheBackend)
	}
	if c.AuthRequired && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_REQUIRED=true")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	return v == "true" || v == "1" || v == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
