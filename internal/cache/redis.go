// Package cache holds the Redis-backed pieces shared by the API: the
// connection itself and the level catalog cache.
package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to addr and pings it. An empty addr returns a nil
// client, which every consumer treats as "Redis disabled".
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
