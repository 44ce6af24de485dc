package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	"ghostlore.app/models"
)

// RateLimiter enforces a fixed-window counter per caller identity on the
// shared cache store. The window is defined solely by the counter key's own
// TTL; a boundary burst can admit up to twice the ceiling, an accepted
// tradeoff of fixed windows. Any store error fails open: an outage in the
// counting substrate must never deny legitimate traffic.
func RateLimiter(client *cache.Client, preset config.RateLimitPreset) gin.HandlerFunc {
	window := preset.Window()

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := cache.RateLimitKey(CallerIdentity(c))

		count, err := client.Increment(ctx, key)
		if err != nil {
			slog.Error("Rate limiter failing open", "error", err)
			c.Next()
			return
		}

		// First hit in a window owns setting the expiry.
		if count == 1 {
			if err := client.Expire(ctx, key, window); err != nil {
				slog.Error("Rate limiter failed to set window", "key", key, "error", err)
			}
		}

		ttlSeconds, _ := client.TTL(ctx, key)
		// A counter whose EXPIRE was lost has no TTL and would lock its
		// identity out forever once over the ceiling. Re-arm the window so
		// the miss self-heals on the next request.
		if ttlSeconds == -1 {
			if err := client.Expire(ctx, key, window); err != nil {
				slog.Error("Rate limiter failed to re-arm window", "key", key, "error", err)
			}
		}
		if ttlSeconds < 0 {
			ttlSeconds = int64(window.Seconds())
		}
		resetAt := time.Now().Add(time.Duration(ttlSeconds) * time.Second)

		remaining := int64(preset.MaxRequests) - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", preset.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC3339))

		if count > int64(preset.MaxRequests) {
			c.Header("Retry-After", fmt.Sprintf("%d", ttlSeconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": models.RateLimitErrorBody{
					Code:    "RATE_LIMIT_EXCEEDED",
					Message: "Too many requests. Please try again later.",
					Details: models.RateLimitDetails{
						Limit:      preset.MaxRequests,
						WindowMs:   preset.WindowMs,
						RetryAfter: int(ttlSeconds),
					},
				},
			})
			return
		}

		c.Next()
	}
}
