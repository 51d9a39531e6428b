package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fieldwork-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 120, cfg.Links.TTLMinutes)
	assert.Equal(t, 2*time.Hour, cfg.Links.TTL())
	assert.Equal(t, 30, cfg.Links.RatePerMinute)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9999")
	t.Setenv("LINK_TTL_MINUTES", "15")
	t.Setenv("LINK_RATE_PER_MINUTE", "5")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9999", cfg.App.Addr())
	assert.Equal(t, 15*time.Minute, cfg.Links.TTL())
	assert.Equal(t, 5, cfg.Links.RatePerMinute)
	// Unparseable values fall back to the default.
	assert.Equal(t, 60, cfg.Auth.AccessTokenTTLMinutes)
}

func TestLinkTTLFallback(t *testing.T) {
	assert.Equal(t, 2*time.Hour, LinkConfig{TTLMinutes: 0}.TTL())
	assert.Equal(t, 2*time.Hour, LinkConfig{TTLMinutes: -5}.TTL())
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 30*time.Second, AppConfig{RequestTimeoutSeconds: 30}.RequestTimeout())
}
