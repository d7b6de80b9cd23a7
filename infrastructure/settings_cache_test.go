package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tierledger/models"
	"tierledger/service"
)

var (
	_ service.SettingsCache = (*RedisSettingsCache)(nil)
	_ service.SettingsCache = (*MemorySettingsCache)(nil)
)

func sampleSettings() *models.SuperSetting {
	masterID := int64(3)
	return &models.SuperSetting{
		ID:              1,
		GameAPIURL:      "https://provider.example",
		GameAPISecret:   "0123456789abcdef0123456789abcdef",
		GameAPIToken:    "provider-token",
		MinDeposit:      decimal.NewFromInt(10),
		MaxDeposit:      decimal.NewFromInt(5000),
		ExposureLimit:   decimal.RequireFromString("250.50"),
		DefaultMasterID: &masterID,
	}
}

func TestMemorySettingsCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemorySettingsCache(time.Minute)

	_, ok := cache.Get(ctx)
	assert.False(t, ok)

	cache.Set(ctx, sampleSettings())
	got, ok := cache.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "provider-token", got.GameAPIToken)

	// Callers get a copy
	got.GameAPIToken = "changed"
	again, _ := cache.Get(ctx)
	assert.Equal(t, "provider-token", again.GameAPIToken)

	cache.Invalidate(ctx)
	_, ok = cache.Get(ctx)
	assert.False(t, ok)
}

func TestMemorySettingsCache_Expires(t *testing.T) {
	ctx := context.Background()
	cache := NewMemorySettingsCache(50 * time.Millisecond)

	cache.Set(ctx, sampleSettings())
	_, ok := cache.Get(ctx)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := cache.Get(ctx)
		return !ok
	}, time.Second, 10*time.Millisecond, "entry should expire after the ttl")
}

func TestRedisSettingsCache(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	cache := NewRedisSettingsCache(rdb, time.Minute)

	_, ok := cache.Get(ctx)
	assert.False(t, ok)

	cache.Set(ctx, sampleSettings())
	got, ok := cache.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "https://provider.example", got.GameAPIURL)
	assert.True(t, decimal.RequireFromString("250.50").Equal(got.ExposureLimit))
	require.NotNil(t, got.DefaultMasterID)
	assert.Equal(t, int64(3), *got.DefaultMasterID)

	ttl, err := rdb.TTL(ctx, SettingsCacheKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	cache.Invalidate(ctx)
	_, ok = cache.Get(ctx)
	assert.False(t, ok)

	require.NoError(t, rdb.Set(ctx, SettingsCacheKey, "not json", time.Minute).Err())
	_, ok = cache.Get(ctx)
	assert.False(t, ok)
}
