package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/souschef/models"
)

// CacheStats returns a handler for GET /api/v1/cache/stats.
func CacheStats(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := d.Cache.Stats(c.Request.Context())
		c.JSON(http.StatusOK, models.CacheStatsResponse{
			Backend: s.Backend,
			Keys:    s.Keys,
			Hits:    s.Hits,
			Misses:  s.Misses,
		})
	}
}

// ClearCache returns a handler for DELETE /api/v1/cache.
func ClearCache(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !d.Cache.Clear(c.Request.Context()) {
			respondError(c, models.NewScrapeError(models.ErrCodeInternal, "cache clear failed", nil))
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	}
}
