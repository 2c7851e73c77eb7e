package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/souschef/cache"
	"github.com/use-agent/souschef/models"
)

const (
	relatedRecipes = 3
	videoTutorials = 3
)

// Recipe returns a handler for GET /api/v1/recipe.
//
// Scrapes a single recipe page with its tutorial video. With
// include_related it also searches related recipes and tutorials by title.
// Responds 404 when no recipe could be extracted from the page.
func Recipe(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		var req models.RecipeRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		req.Defaults()
		useCache := *req.UseCache
		includeRelated := *req.IncludeRelated

		key := cache.Fingerprint(cache.PrefixDetail, map[string]string{
			"url":     req.URL,
			"related": strconv.FormatBool(includeRelated),
		})
		if useCache {
			var cached models.RecipeDetailResponse
			if d.Cache.Get(ctx, key, &cached) {
				cached.ProcessingTime = seconds(start)
				cached.Cached = true
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		recipe, ok := d.Scraper.ScrapeRecipe(ctx, req.URL, true)
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "no recipe found at "+req.URL, nil))
			return
		}

		resp := models.RecipeDetailResponse{
			Recipe:         recipe,
			RelatedRecipes: []models.Recipe{},
			VideoTutorials: []models.Video{},
		}
		if includeRelated {
			resp.VideoTutorials = d.Videos.Search(ctx, recipe.Title, videoTutorials)
			for _, r := range d.Scraper.Search(ctx, recipe.Title, relatedRecipes, false) {
				if r.SourceURL != recipe.SourceURL {
					resp.RelatedRecipes = append(resp.RelatedRecipes, r)
				}
			}
		}
		resp.ProcessingTime = seconds(start)

		if useCache {
			d.Cache.Set(ctx, key, resp, 0)
		}
		c.JSON(http.StatusOK, resp)
	}
}
