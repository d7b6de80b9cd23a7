package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"tierledger/models"
)

// SettingsCacheKey is the redis key holding the serialized settings row
const SettingsCacheKey = "tierledger:settings"

// RedisSettingsCache keeps the settings row in redis so every instance sees
// an update as soon as the writer invalidates it
type RedisSettingsCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
	key string
}

// NewRedisSettingsCache creates a redis backed settings cache
func NewRedisSettingsCache(rdb redis.UniversalClient, ttl time.Duration) *RedisSettingsCache {
	return &RedisSettingsCache{
		rdb: rdb,
		ttl: ttl,
		key: SettingsCacheKey,
	}
}

func (c *RedisSettingsCache) Get(ctx context.Context) (*models.SuperSetting, bool) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).Warn("Failed to read settings from redis")
		}
		return nil, false
	}

	var settings models.SuperSetting
	if err := json.Unmarshal(raw, &settings); err != nil {
		log.WithError(err).Warn("Discarding malformed cached settings")
		return nil, false
	}
	return &settings, true
}

func (c *RedisSettingsCache) Set(ctx context.Context, settings *models.SuperSetting) {
	if settings == nil {
		return
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		log.WithError(err).Warn("Failed to encode settings for cache")
		return
	}
	if err := c.rdb.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		log.WithError(err).Warn("Failed to write settings to redis")
	}
}

func (c *RedisSettingsCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		log.WithError(err).Warn("Failed to invalidate cached settings")
	}
}

// MemorySettingsCache is the in-process cache used when no redis is configured
type MemorySettingsCache struct {
	lru *expirable.LRU[string, models.SuperSetting]
}

// NewMemorySettingsCache creates an in-process settings cache. A ttl of zero keeps
// entries until they are invalidated.
func NewMemorySettingsCache(ttl time.Duration) *MemorySettingsCache {
	return &MemorySettingsCache{
		lru: expirable.NewLRU[string, models.SuperSetting](1, nil, ttl),
	}
}

func (c *MemorySettingsCache) Get(ctx context.Context) (*models.SuperSetting, bool) {
	settings, ok := c.lru.Get(SettingsCacheKey)
	if !ok {
		return nil, false
	}
	return &settings, true
}

func (c *MemorySettingsCache) Set(ctx context.Context, settings *models.SuperSetting) {
	if settings == nil {
		return
	}
	c.lru.Add(SettingsCacheKey, *settings)
}

func (c *MemorySettingsCache) Invalidate(ctx context.Context) {
	c.lru.Remove(SettingsCacheKey)
}
