package api

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/souschef/api/handler"
	"github.com/use-agent/souschef/api/middleware"
	"github.com/use-agent/souschef/metrics"
	"github.com/use-agent/souschef/ratelimit"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Metrics → Logger
//	API:     Auth (if enabled) → RateLimit (if enabled)
//
// Health and metrics endpoints are intentionally outside auth so monitoring
// probes always work.
func NewRouter(d *handler.Deps, limiter *ratelimit.Limiter) *gin.Engine {
	cfg := d.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(metrics.Middleware())
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}

	r.GET("/metrics", metrics.Handler())

	v1 := r.Group("/api/v1")

	// Health, no auth required.
	v1.GET("/health", handler.Health(d))

	// Protected group: auth and rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(limiter, cfg.RateLimit))

	// Search
	protected.GET("/search", handler.Search(d))
	protected.POST("/search", handler.PostSearch(d))
	protected.GET("/search/ingredient", handler.IngredientSearch(d))
	protected.GET("/search/advanced", handler.AdvancedSearch(d))
	protected.GET("/search/category/:category", handler.CategorySearch(d))

	// Recipes and videos
	protected.GET("/recipe", handler.Recipe(d))
	protected.GET("/videos/search", handler.VideoSearch(d))
	protected.GET("/recommendations", handler.Recommendations(d))
	protected.GET("/trending", handler.Trending(d))

	// Batch
	protected.GET("/batch/urls", handler.BatchURLs(d))
	protected.POST("/batch/scrape", handler.PostBatch(d))
	protected.GET("/batch/:id", handler.GetBatch())

	// Cache
	protected.GET("/cache/stats", handler.CacheStats(d))
	protected.DELETE("/cache", handler.ClearCache(d))

	return r
}
