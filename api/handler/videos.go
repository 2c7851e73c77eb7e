package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/souschef/cache"
	"github.com/use-agent/souschef/models"
	"github.com/use-agent/souschef/video"
)

// VideoSearch returns a handler for GET /api/v1/videos/search.
func VideoSearch(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req models.VideoSearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		req.Defaults()
		req.Query = strings.TrimSpace(req.Query)
		if req.Query == "" {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "query must not be empty", nil))
			return
		}

		key := cache.Fingerprint(cache.PrefixVideo, map[string]string{
			"q":     strings.ToLower(req.Query),
			"limit": strconv.Itoa(req.MaxResults),
		})
		var resp models.VideoSearchResponse
		if d.Cache.Get(ctx, key, &resp) {
			c.JSON(http.StatusOK, resp)
			return
		}

		videos := d.Videos.Search(ctx, req.Query, req.MaxResults)
		resp = models.VideoSearchResponse{
			Videos:     videos,
			Query:      req.Query,
			TotalFound: len(videos),
			Platform:   video.Platform,
		}
		if len(videos) > 0 {
			d.Cache.Set(ctx, key, resp, 0)
		}
		c.JSON(http.StatusOK, resp)
	}
}
