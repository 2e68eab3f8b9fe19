package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

const levelCatalogKey = "learnjs:levels:active"

// LevelCache stores the active level catalog as one JSON document.
// Every method is a no-op on a nil client, and Redis errors only log:
// the catalog is always recoverable from the database.
type LevelCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLevelCache(client *redis.Client, ttl time.Duration) *LevelCache {
	return &LevelCache{client: client, ttl: ttl}
}

func (c *LevelCache) Get(ctx context.Context) ([]*domain.Level, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, levelCatalogKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("level cache read failed", "error", err)
		}
		return nil, false
	}
	var levels []*domain.Level
	if err := json.Unmarshal(raw, &levels); err != nil {
		logger.Warn("level cache holds invalid data", "error", err)
		return nil, false
	}
	return levels, true
}

func (c *LevelCache) Set(ctx context.Context, levels []*domain.Level) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(levels)
	if err != nil {
		logger.Warn("level cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, levelCatalogKey, raw, c.ttl).Err(); err != nil {
		logger.Warn("level cache write failed", "error", err)
	}
}

func (c *LevelCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, levelCatalogKey).Err(); err != nil {
		logger.Warn("level cache invalidation failed", "error", err)
	}
}
