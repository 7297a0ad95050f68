package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keebreview/keebreview/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AUTH_MODE", "remote")
	t.Setenv("AUTH_PROVIDER_URL", "https://auth.example.com")
	t.Setenv("AUTH_PROVIDER_ANON_KEY", "anon-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/keebreview")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, AuthModeRemote, cfg.Auth.Mode)
	assert.Equal(t, 20, cfg.Storage.PostgresMaxConns)
	assert.Equal(t, 5*time.Minute, cfg.Storage.ProfileCacheTTL)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "local")
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_URL", "postgres://localhost/keebreview")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_MAX_CONNS", "50")
	t.Setenv("PROFILE_CACHE_TTL", "90s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, AuthModeLocal, cfg.Auth.Mode)
	assert.Equal(t, 50, cfg.Storage.PostgresMaxConns)
	assert.Equal(t, 90*time.Second, cfg.Storage.ProfileCacheTTL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfig_RemoteModeRequiresProvider(t *testing.T) {
	t.Setenv("AUTH_MODE", "remote")
	t.Setenv("DATABASE_URL", "postgres://localhost/keebreview")
	t.Setenv("AUTH_PROVIDER_URL", "")
	t.Setenv("AUTH_PROVIDER_ANON_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_PROVIDER_URL")
}

func TestLoadConfig_LocalModeRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_MODE", "local")
	t.Setenv("DATABASE_URL", "postgres://localhost/keebreview")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestLoadConfig_UnknownMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "federated")
	t.Setenv("DATABASE_URL", "postgres://localhost/keebreview")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_MODE")
}

func TestLoadConfig_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("AUTH_MODE", "local")
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
