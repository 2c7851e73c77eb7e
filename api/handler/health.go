package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/souschef/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports degraded when the browser engine is configured but has not come
// up, since fetches then rely on the HTTP engine alone.
func Health(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		browser := d.Browser != nil && d.Browser.Ready()

		status := "healthy"
		if d.Config.Browser.Enabled && !browser {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(d.Started).Round(time.Second).String(),
			Cache:   d.Cache.Backend().Name(),
			Browser: browser,
			Version: Version,
		})
	}
}
