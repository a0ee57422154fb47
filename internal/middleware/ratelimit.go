// ratelimit.go provides Gin middleware that enforces per-client rate limits
// backed by Redis, returning 429 when the configured requests-per-minute
// threshold is exceeded.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/mayukh2077/swift-org/internal/config"
)

// RateLimitMiddleware limits requests per client using a Redis-backed GCRA
// limiter, so the limit holds across all instances sharing the Redis. If the
// limiter errors (Redis down) requests are allowed through: rate limiting is
// protection, not a dependency.
func RateLimitMiddleware(limiter *redis_rate.Limiter, cfg config.RateLimitingConfig) gin.HandlerFunc {
	limit := redis_rate.Limit{
		Rate:   cfg.RequestsPerMinute,
		Burst:  cfg.Burst,
		Period: time.Minute,
	}

	return func(c *gin.Context) {
		if !cfg.Enabled || limiter == nil {
			c.Next()
			return
		}

		key := getRateLimitKey(c)
		res, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			retryAfter := int(res.RetryAfter.Seconds() + 1)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// getRateLimitKey picks the limiter key for a request.
// Priority: authenticated user > client IP.
func getRateLimitKey(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok && id != "" {
			return "user:" + id
		}
	}
	return "ip:" + c.ClientIP()
}
