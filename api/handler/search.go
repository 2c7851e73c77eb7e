package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/souschef/cache"
	"github.com/use-agent/souschef/models"
)

// maxSearchResults is the largest result set a single search scrapes.
const maxSearchResults = 50

// Search returns a handler for GET /api/v1/search.
func Search(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		d.search(c, &req)
	}
}

// PostSearch returns a handler for POST /api/v1/search. The JSON body
// accepts the same fields as the query string plus max_time_minutes and
// min_rating.
func PostSearch(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		d.search(c, &req)
	}
}

// search runs the cached search flow:
//  1. Apply defaults and reject a blank query.
//  2. Serve the stored response on a cache hit, refreshing search_time.
//  3. Refine the query, scrape, filter and attach video results.
//  4. Store a non-empty response and return it.
func (d *Deps) search(c *gin.Context, req *models.SearchRequest) {
	start := time.Now()
	ctx := c.Request.Context()

	// ── 1. Defaults ─────────────────────────────────────────────
	req.Defaults()
	if req.Query == "" {
		respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "query must not be empty", nil))
		return
	}
	useCache := *req.UseCache
	includeVideos := *req.IncludeVideos

	// ── 2. Cache lookup ─────────────────────────────────────────
	key := cache.Fingerprint(cache.PrefixSearch, req.CacheParams())
	if useCache {
		var cached models.SearchResponse
		if d.Cache.Get(ctx, key, &cached) {
			cached.SearchTime = seconds(start)
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	// ── 3. Scrape ───────────────────────────────────────────────
	query := d.Refiner.Refine(ctx, req.Query)

	// Filters drop results after extraction, so scrape extra candidates.
	fetch := req.MaxResults
	if !req.Filters.IsZero() {
		fetch = min(fetch*2, maxSearchResults)
	}
	recipes := req.Filters.Apply(d.Scraper.Search(ctx, query, fetch, includeVideos))
	if len(recipes) > req.MaxResults {
		recipes = recipes[:req.MaxResults]
	}

	resp := models.SearchResponse{
		Recipes:    nonNil(recipes),
		TotalFound: len(recipes),
		Query:      query,
	}
	if includeVideos {
		resp.VideoResults = d.Videos.Search(ctx, query, d.Config.Video.SearchResults)
	}
	resp.SearchTime = seconds(start)

	// ── 4. Cache store ──────────────────────────────────────────
	if useCache && len(recipes) > 0 {
		d.Cache.Set(ctx, key, resp, 0)
	}

	c.JSON(http.StatusOK, resp)
}
