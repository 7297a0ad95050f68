// Package config loads all application configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/keebreview/keebreview/pkg/observability"
	"github.com/keebreview/keebreview/pkg/storage"
)

// AuthMode selects which identity verification backend the guard uses.
type AuthMode string

const (
	// AuthModeRemote introspects bearer tokens against the identity
	// provider on every guarded request.
	AuthModeRemote AuthMode = "remote"
	// AuthModeLocal verifies locally-issued HS256 tokens with a shared
	// secret and never contacts a remote provider for verification.
	AuthModeLocal AuthMode = "local"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Storage       storage.Config
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds identity-provider and verifier configuration. The two
// auth backends are mutually exclusive; Mode picks one at startup.
type AuthConfig struct {
	Mode AuthMode

	// Remote mode: identity provider base URL and public (anon) key.
	ProviderURL     string
	ProviderAnonKey string

	// Local mode: HS256 signing secret for locally-issued tokens.
	JWTSecret string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth:          loadAuthConfig(),
		Storage:       loadStorageConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("HOST", ""),
		Port:            getEnv("PORT", "4000"),
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		Mode:            AuthMode(getEnv("AUTH_MODE", string(AuthModeRemote))),
		ProviderURL:     getEnv("AUTH_PROVIDER_URL", ""),
		ProviderAnonKey: getEnv("AUTH_PROVIDER_ANON_KEY", ""),
		JWTSecret:       getEnv("AUTH_JWT_SECRET", ""),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()
	cfg.PostgresURL = getEnv("DATABASE_URL", "")
	cfg.PostgresMaxConns = getEnvInt("DATABASE_MAX_CONNS", cfg.PostgresMaxConns)
	cfg.PostgresMinConns = getEnvInt("DATABASE_MIN_CONNS", cfg.PostgresMinConns)
	cfg.PostgresTimeout = getEnvDuration("DATABASE_TIMEOUT", cfg.PostgresTimeout)

	cfg.S3Endpoint = getEnv("S3_ENDPOINT", "")
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3Bucket = getEnv("S3_BUCKET", "")
	cfg.S3AccessKey = getEnv("S3_ACCESS_KEY", "")
	cfg.S3SecretKey = getEnv("S3_SECRET_KEY", "")
	cfg.S3UsePathStyle = getEnvBool("S3_USE_PATH_STYLE", false)
	cfg.S3PublicBaseURL = getEnv("S3_PUBLIC_BASE_URL", "")

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.ProfileCacheTTL = getEnvDuration("PROFILE_CACHE_TTL", cfg.ProfileCacheTTL)

	return cfg
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

// Validate checks cross-field constraints that cannot be defaulted away.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case AuthModeRemote:
		if c.Auth.ProviderURL == "" || c.Auth.ProviderAnonKey == "" {
			return fmt.Errorf("AUTH_PROVIDER_URL and AUTH_PROVIDER_ANON_KEY are required in remote auth mode")
		}
	case AuthModeLocal:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required in local auth mode")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q (want %q or %q)", c.Auth.Mode, AuthModeRemote, AuthModeLocal)
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
