package handler

import (
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/souschef/models"
	"golang.org/x/sync/errgroup"
)

// trendingTerms seed the trending endpoint.
var trendingTerms = []string{
	"viral recipes 2024",
	"easy weeknight dinner",
	"healthy meal prep",
	"comfort food recipes",
	"quick breakfast ideas",
	"one pot meals",
	"air fryer recipes",
}

const (
	trendingPerTerm   = 3
	trendingParallel  = 3
	categoryVideos    = 3
	recommendAlgoName = "content_similarity"
)

// IngredientSearch returns a handler for GET /api/v1/search/ingredient.
func IngredientSearch(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.IngredientSearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		ingredient := strings.TrimSpace(req.Ingredient)
		if ingredient == "" {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "ingredient must not be empty", nil))
			return
		}
		if req.Limit == 0 {
			req.Limit = 10
		}

		filters := models.Filters{ExcludeIngredients: []string{req.ExcludeIngredients}}
		filters.Normalize()

		recipes := d.Scraper.Search(c.Request.Context(), ingredient+" recipes", req.Limit, false)
		recipes = filters.Apply(recipes)

		c.JSON(http.StatusOK, models.IngredientSearchResponse{
			Recipes:             nonNil(recipes),
			MainIngredient:      ingredient,
			ExcludedIngredients: nonNil(filters.ExcludeIngredients),
			TotalFound:          len(recipes),
		})
	}
}

// AdvancedSearch returns a handler for GET /api/v1/search/advanced.
//
// Cuisine, diet and difficulty are folded into the search terms; max_time
// and min_rating filter the scraped records.
func AdvancedSearch(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AdvancedSearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "query must not be empty", nil))
			return
		}
		if req.Limit == 0 {
			req.Limit = 10
		}

		filters := models.Filters{MaxTimeMinutes: req.MaxTime, MinRating: req.MinRating}
		recipes := filters.Apply(d.Scraper.Search(c.Request.Context(), req.SearchTerms(), req.Limit, false))

		c.JSON(http.StatusOK, models.AdvancedSearchResponse{
			Recipes:        nonNil(recipes),
			FiltersApplied: req,
			TotalFound:     len(recipes),
		})
	}
}

// CategorySearch returns a handler for GET /api/v1/search/category/:category.
func CategorySearch(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		category := strings.TrimSpace(c.Param("category"))
		if category == "" {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "category must not be empty", nil))
			return
		}
		var req models.CategoryRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		req.Defaults()
		includeVideos := *req.IncludeVideos

		recipes := d.Scraper.Search(ctx, category, req.Limit, includeVideos)
		resp := models.CategoryResponse{
			Recipes:    nonNil(recipes),
			Category:   category,
			TotalFound: len(recipes),
			Videos:     []models.Video{},
		}
		if includeVideos {
			resp.Videos = d.Videos.Search(ctx, category+" recipes", categoryVideos)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Recommendations returns a handler for GET /api/v1/recommendations.
// Recommendations are search results for the based_on text.
func Recommendations(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RecommendationRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		basedOn := strings.TrimSpace(req.BasedOn)
		if basedOn == "" {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "based_on must not be empty", nil))
			return
		}
		if req.MaxResults == 0 {
			req.MaxResults = 5
		}

		recipes := d.Scraper.Search(c.Request.Context(), basedOn, req.MaxResults, false)
		c.JSON(http.StatusOK, models.RecommendationResponse{
			Recommendations: nonNil(recipes),
			BasedOn:         basedOn,
			Algorithm:       recommendAlgoName,
		})
	}
}

// Trending returns a handler for GET /api/v1/trending.
//
// Searches each trending term, shuffles the combined results and returns
// the first limit of them. total_found counts every result before the cut.
func Trending(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TrendingRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		if req.Limit == 0 {
			req.Limit = 15
		}

		ctx := c.Request.Context()
		perTerm := make([][]models.Recipe, len(trendingTerms))

		var g errgroup.Group
		g.SetLimit(trendingParallel)
		for i, term := range trendingTerms {
			g.Go(func() error {
				perTerm[i] = d.Scraper.Search(ctx, term, trendingPerTerm, false)
				return nil
			})
		}
		_ = g.Wait()

		all := []models.Recipe{}
		for _, recipes := range perTerm {
			all = append(all, recipes...)
		}
		total := len(all)
		rand.Shuffle(total, func(i, j int) { all[i], all[j] = all[j], all[i] })
		if len(all) > req.Limit {
			all = all[:req.Limit]
		}

		c.JSON(http.StatusOK, models.TrendingResponse{
			TrendingRecipes: all,
			TotalFound:      total,
			TrendingTerms:   trendingTerms,
		})
	}
}
