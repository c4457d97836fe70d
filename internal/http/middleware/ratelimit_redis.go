package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"banana_clicker/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes the shared Redis client used by the limiters.
// If addr is empty or the ping fails, redisClient stays nil and the limiters
// fall back to process-local counting.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using local rate limiting", "addr", addr, "error", err)
		redisClient = nil
	}
}

// CloseRedis releases the shared client.
func CloseRedis() {
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

// hit counts one request against key and returns the count inside the
// current window. ok is false when Redis errored.
func hit(ctx context.Context, key string, window time.Duration) (count int64, ok bool) {
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	if val == 1 {
		redisClient.Expire(ctx, key, window)
	}
	return val, true
}

// RedisRateLimit is a fixed-window limiter per client IP using INCR/EXPIRE.
// key format: rl:<window_seconds>:<ip>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter()
	return func(c *gin.Context) {
		ident := c.ClientIP()

		var count int64
		if redisClient != nil {
			key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident
			n, ok := hit(c.Request.Context(), key, window)
			if !ok {
				c.Header("X-RateLimit-Error", "redis-error")
				c.Next()
				return
			}
			count = n
		} else {
			count = local.hit(ident, window)
		}

		if count > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
