package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/souschef/config"
	"github.com/use-agent/souschef/models"
	"github.com/use-agent/souschef/ratelimit"
)

// RateLimit returns fixed-window rate limiting middleware keyed by API key
// (set by Auth) or client IP. Counters live in the shared cache through
// limiter, so every instance sharing the cache enforces the same budget.
func RateLimit(limiter *ratelimit.Limiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		identity := c.GetString(APIKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}
		ctx := c.Request.Context()

		allowed := limiter.IsAllowed(ctx, identity, cfg.Requests, cfg.Window)

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(ctx, identity, cfg.Requests, cfg.Window)))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(limiter.ResetAt(cfg.Window).Unix(), 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}
		c.Next()
	}
}
