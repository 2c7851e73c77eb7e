package models

// SearchResponse is the response for GET and POST /api/v1/search.
type SearchResponse struct {
	Recipes    []Recipe `json:"recipes"`
	TotalFound int      `json:"total_found"`
	Query      string   `json:"query"`

	// SearchTime is the wall time of this request in seconds. On a cache
	// hit it measures the lookup, not the original scrape.
	SearchTime float64 `json:"search_time"`

	// Cached is true when the response was served from the cache.
	Cached bool `json:"cached"`

	VideoResults []Video `json:"video_results,omitempty"`
}

// RecipeDetailResponse is the response for GET /api/v1/recipe.
type RecipeDetailResponse struct {
	Recipe         Recipe   `json:"recipe"`
	ProcessingTime float64  `json:"processing_time"`
	Cached         bool     `json:"cached"`
	RelatedRecipes []Recipe `json:"related_recipes"`
	VideoTutorials []Video  `json:"video_tutorials"`
}

// VideoSearchResponse is the response for GET /api/v1/videos/search.
type VideoSearchResponse struct {
	Videos     []Video `json:"videos"`
	Query      string  `json:"query"`
	TotalFound int     `json:"total_found"`
	Platform   string  `json:"platform"`
}

// BatchURLsResponse is the response for GET /api/v1/batch/urls.
type BatchURLsResponse struct {
	SuccessfulRecipes []Recipe `json:"successful_recipes"`
	FailedURLs        []string `json:"failed_urls"`
	TotalRequested    int      `json:"total_requested"`
	SuccessfulCount   int      `json:"successful_count"`
	FailedCount       int      `json:"failed_count"`
}

// RecommendationResponse is the response for GET /api/v1/recommendations.
type RecommendationResponse struct {
	Recommendations []Recipe `json:"recommendations"`
	BasedOn         string   `json:"based_on"`
	Algorithm       string   `json:"algorithm"`
}

// TrendingResponse is the response for GET /api/v1/trending.
type TrendingResponse struct {
	TrendingRecipes []Recipe `json:"trending_recipes"`
	TotalFound      int      `json:"total_found"`
	TrendingTerms   []string `json:"trending_terms"`
}

// IngredientSearchResponse is the response for GET /api/v1/search/ingredient.
type IngredientSearchResponse struct {
	Recipes             []Recipe `json:"recipes"`
	MainIngredient      string   `json:"main_ingredient"`
	ExcludedIngredients []string `json:"excluded_ingredients"`
	TotalFound          int      `json:"total_found"`
}

// AdvancedSearchResponse is the response for GET /api/v1/search/advanced.
type AdvancedSearchResponse struct {
	Recipes        []Recipe              `json:"recipes"`
	FiltersApplied AdvancedSearchRequest `json:"filters_applied"`
	TotalFound     int                   `json:"total_found"`
}

// CategoryResponse is the response for GET /api/v1/search/category/:category.
type CategoryResponse struct {
	Recipes    []Recipe `json:"recipes"`
	Category   string   `json:"category"`
	TotalFound int      `json:"total_found"`
	Videos     []Video  `json:"videos"`
}

// CacheStatsResponse is the response for GET /api/v1/cache/stats.
type CacheStatsResponse struct {
	Backend string `json:"backend"`
	Keys    int    `json:"total_keys"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// ErrorResponse wraps an ErrorDetail for non-2xx responses.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "degraded"
	Uptime  string `json:"uptime"`
	Cache   string `json:"cache"`
	Browser bool   `json:"browser"`
	Version string `json:"version"`
}
