package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ActionRateLimit limits player actions per user (not per IP).
// Requires JWT to run first so user_id is in the context.
func ActionRateLimit(maxActions int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter()
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ident := strconv.FormatInt(userID, 10)

		var count int64
		if redisClient != nil {
			key := "action_rl:" + ident + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
			n, ok := hit(c.Request.Context(), key, window)
			if !ok {
				// fail-open
				c.Header("X-ActionRateLimit-Error", "redis-error")
				c.Next()
				return
			}
			count = n
		} else {
			count = local.hit(ident, window)
		}

		c.Header("X-ActionRateLimit-Limit", strconv.Itoa(maxActions))
		c.Header("X-ActionRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxActions)-count), 10))

		if count > int64(maxActions) {
			RLBlocked.WithLabelValues("action:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "action rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("action:" + c.FullPath()).Inc()
		c.Next()
	}
}
