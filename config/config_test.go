package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30, cfg.ProviderHTTPTimeoutSeconds)
	assert.Equal(t, "console", cfg.OTelExporterType)
	assert.True(t, decimal.NewFromInt(10000).Equal(cfg.DiscordAlertThreshold))
	assert.False(t, cfg.DiscordEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RequiredOutsideTest(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("JWT_SECRET", "")
	_, err = load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DISCORD_ALERT_THRESHOLD", "2500.50")
	t.Setenv("PROVIDER_HTTP_TIMEOUT_SECONDS", "12")

	cfg, err := load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "2500.5", cfg.DiscordAlertThreshold.String())
	assert.Equal(t, int64(12), int64(cfg.ProviderTimeout().Seconds()))
}
