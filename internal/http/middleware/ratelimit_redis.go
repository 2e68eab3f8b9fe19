package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// UseRedis shares client with the rate limiters. A nil client switches them
// to per-process counters.
func UseRedis(client *redis.Client) {
	redisClient = client
}

// hit counts one request for key in the current fixed window, or uses the
// local counter without Redis. INCR and EXPIRE NX run in one MULTI so a
// counter is never left without a TTL.
func hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if redisClient == nil {
		return local.incr(key, window), nil
	}
	var incr *redis.IntCmd
	_, err := redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func windowKey(prefix, scope, ident string, window time.Duration) string {
	return prefix + ":" + scope + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident
}

// RedisRateLimit implements a fixed-window limiter per client IP.
// key format: rl:<scope>:<window_seconds>:<ip>
func RedisRateLimit(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := windowKey("rl", scope, c.ClientIP(), window)

		val, err := hit(c.Request.Context(), key, window)
		if err != nil {
			// on Redis error, fail-open (allow) but set header
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(scope).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "rate_limited"})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}
