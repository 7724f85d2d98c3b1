package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "HOST", "PORT", "APP_VERSION", "CORS_ORIGINS", "API_URL",
		"RATE_LIMIT_STORE", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "REDIS_URL",
		"REDIS_DB", "TRUSTED_PROXIES", "HEALTH_TIMEOUT", "SHUTDOWN_TIMEOUT", "ALERTS_ENABLED", "OTEL_SAMPLE_RATIO",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.Nil(t, cfg.CORSOrigins)
	assert.False(t, cfg.HasExplicitOrigins())
	assert.Equal(t, StoreMemory, cfg.RateLimitStore)
	assert.Equal(t, 100, cfg.RateLimitReqs)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 5*time.Second, cfg.HealthTimeout)
	assert.True(t, cfg.AlertsEnabled)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadConfigOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "Production")
	t.Setenv("CORS_ORIGINS", " https://App.Example.com/ ,http://localhost:5173,,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.True(t, cfg.HasExplicitOrigins())
}

func TestLoadConfigRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non numeric port", "PORT", "http"},
		{"port out of range", "PORT", "70000"},
		{"origin with path", "CORS_ORIGINS", "https://app.example.com/login"},
		{"origin without scheme", "CORS_ORIGINS", "app.example.com"},
		{"relative api url", "API_URL", "/api"},
		{"unknown store", "RATE_LIMIT_STORE", "memcached"},
		{"redis store without url", "RATE_LIMIT_STORE", "redis"},
		{"zero window", "RATE_LIMIT_WINDOW", "0"},
		{"bad bool", "ALERTS_ENABLED", "maybe"},
		{"sample ratio above one", "OTEL_SAMPLE_RATIO", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			cfg, err := LoadConfig()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestAddrIPv6(t *testing.T) {
	cfg := &Config{Host: "::1", Port: 8080}
	assert.Equal(t, "[::1]:8080", cfg.Addr())
}
