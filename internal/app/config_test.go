package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/roz-pos/roz/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":3000", cfg.AppAddr)
	require.Equal(t, NotifyModeInline, cfg.NotifyMode)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.Equal(t, "IQD", cfg.CurrencyCode)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("NOTIFY_MODE", "queue")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "300")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, NotifyModeQueue, cfg.NotifyMode)
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Equal(t, 300, cfg.RateLimitPerMinute)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("NOTIFY_MODE", "sms")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("NOTIFY_MODE", "inline")
	t.Setenv("SESSION_SECRET", "")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestInTestMode(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}
