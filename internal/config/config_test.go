package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NOTIFY_CHANNELS", "")
	t.Setenv("CACHE_DASHBOARD_TTL_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"log"}, cfg.Notification.Channels)
	assert.Equal(t, time.Hour, cfg.Cache.DashboardTTL())
	assert.Equal(t, "password123", cfg.Auth.SeedPassword)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NOTIFY_CHANNELS", " SMTP, slack ,,nats")
	t.Setenv("NOTIFY_TIMEOUT_SECONDS", "3")
	t.Setenv("RATE_LIMIT_MAX", "not-a-number")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"smtp", "slack", "nats"}, cfg.Notification.Channels)
	assert.Equal(t, 3*time.Second, cfg.Notification.Timeout())
	assert.Equal(t, 10, cfg.RateLimit.Max)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "one")
	_, err := Load()
	assert.Error(t, err)
}
