package models

import (
	"sort"
	"strconv"
	"strings"
)

// SearchRequest is the query for GET and POST /api/v1/search.
type SearchRequest struct {
	// Query is the free-text search. Required, 1-100 characters.
	Query string `form:"q" json:"query" binding:"required,min=1,max=100"`

	// MaxResults caps the number of recipes returned. Default: 10. Max: 50.
	MaxResults int `form:"limit" json:"max_results" binding:"omitempty,min=1,max=50"`

	// UseCache allows serving and storing the assembled response in the cache.
	// Default: true.
	UseCache *bool `form:"use_cache" json:"use_cache,omitempty"`

	// IncludeVideos attaches a tutorial link to every recipe and a list of
	// videos to the response. Default: true.
	IncludeVideos *bool `form:"include_videos" json:"include_videos,omitempty"`

	Filters
}

// Defaults applies default values to unset fields and canonicalises the
// filter lists.
func (r *SearchRequest) Defaults() {
	r.Query = strings.TrimSpace(r.Query)
	if r.MaxResults == 0 {
		r.MaxResults = 10
	}
	if r.UseCache == nil {
		t := true
		r.UseCache = &t
	}
	if r.IncludeVideos == nil {
		t := true
		r.IncludeVideos = &t
	}
	r.Filters.Normalize()
}

// CacheParams returns the parameters that identify this search in the cache.
// Two requests with the same parameters in any order produce the same map.
func (r *SearchRequest) CacheParams() map[string]string {
	p := r.Filters.CacheParams()
	p["q"] = strings.ToLower(r.Query)
	p["limit"] = strconv.Itoa(r.MaxResults)
	p["videos"] = strconv.FormatBool(r.IncludeVideos != nil && *r.IncludeVideos)
	return p
}

// Filters narrows a result set after scraping.
type Filters struct {
	Ingredients        []string `form:"ingredients" json:"ingredients,omitempty"`
	ExcludeIngredients []string `form:"exclude_ingredients" json:"exclude_ingredients,omitempty"`
	Tags               []string `form:"tags" json:"tags,omitempty"`
	Cuisine            string   `form:"cuisine" json:"cuisine,omitempty"`
	Difficulty         string   `form:"difficulty" json:"difficulty,omitempty"`
	MaxTimeMinutes     int      `form:"max_time" json:"max_time_minutes,omitempty" binding:"omitempty,min=1"`
	MinRating          float64  `form:"min_rating" json:"min_rating,omitempty" binding:"omitempty,min=0,max=5"`
}

// Normalize splits comma-separated list entries, trims, lower-cases, sorts
// and de-duplicates every list filter.
func (f *Filters) Normalize() {
	f.Ingredients = canonicalList(f.Ingredients)
	f.ExcludeIngredients = canonicalList(f.ExcludeIngredients)
	f.Tags = canonicalList(f.Tags)
	f.Cuisine = strings.ToLower(strings.TrimSpace(f.Cuisine))
	f.Difficulty = strings.ToLower(strings.TrimSpace(f.Difficulty))
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return len(f.Ingredients) == 0 && len(f.ExcludeIngredients) == 0 &&
		len(f.Tags) == 0 && f.Cuisine == "" && f.Difficulty == "" &&
		f.MaxTimeMinutes == 0 && f.MinRating == 0
}

// CacheParams returns the non-empty filters keyed by name.
func (f Filters) CacheParams() map[string]string {
	p := map[string]string{
		"ingredients": strings.Join(f.Ingredients, ","),
		"exclude":     strings.Join(f.ExcludeIngredients, ","),
		"tags":        strings.Join(f.Tags, ","),
		"cuisine":     f.Cuisine,
		"difficulty":  f.Difficulty,
	}
	if f.MaxTimeMinutes > 0 {
		p["max_time"] = strconv.Itoa(f.MaxTimeMinutes)
	}
	if f.MinRating > 0 {
		p["min_rating"] = strconv.FormatFloat(f.MinRating, 'f', -1, 64)
	}
	return p
}

// Match reports whether the recipe passes every set filter.
//
//   - difficulty: case-insensitive equality
//   - ingredients: every entry appears in the ingredient text
//   - exclude_ingredients: no entry appears in the ingredient text
//   - tags: at least one entry equals a recipe tag
//   - cuisine: equals a recipe tag or appears in the title
//   - max_time: total time (or prep + cook) is known and within the limit
//   - min_rating: rating is known and at least the minimum
func (f Filters) Match(r Recipe) bool {
	if f.Difficulty != "" && !strings.EqualFold(r.Difficulty, f.Difficulty) {
		return false
	}

	ingredientText := strings.ToLower(strings.Join(r.Ingredients, " "))
	for _, want := range f.Ingredients {
		if !strings.Contains(ingredientText, want) {
			return false
		}
	}
	for _, unwanted := range f.ExcludeIngredients {
		if strings.Contains(ingredientText, unwanted) {
			return false
		}
	}

	tags := make(map[string]struct{}, len(r.Tags))
	for _, t := range r.Tags {
		tags[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	if len(f.Tags) > 0 {
		found := false
		for _, t := range f.Tags {
			if _, ok := tags[t]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Cuisine != "" {
		_, tagged := tags[f.Cuisine]
		if !tagged && !strings.Contains(strings.ToLower(r.Title), f.Cuisine) {
			return false
		}
	}

	if f.MaxTimeMinutes > 0 {
		minutes, ok := TotalMinutes(r.TimeInfo)
		if !ok || minutes > f.MaxTimeMinutes {
			return false
		}
	}
	if f.MinRating > 0 {
		if r.Rating == nil || r.Rating.Value == nil || *r.Rating.Value < f.MinRating {
			return false
		}
	}
	return true
}

// Apply returns the recipes that pass the filters, preserving order.
func (f Filters) Apply(recipes []Recipe) []Recipe {
	if f.IsZero() {
		return recipes
	}
	out := make([]Recipe, 0, len(recipes))
	for _, r := range recipes {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// TotalMinutes returns the recipe's total time in minutes, summing prep and
// cook time when no total is declared.
func TotalMinutes(t TimeInfo) (int, bool) {
	if m, ok := ParseISODuration(t.TotalTime); ok {
		return m, true
	}
	prep, okPrep := ParseISODuration(t.PrepTime)
	cook, okCook := ParseISODuration(t.CookTime)
	if !okPrep && !okCook {
		return 0, false
	}
	return prep + cook, true
}

// ParseISODuration converts an ISO-8601 duration such as "PT1H30M" or
// "P1DT2H" into whole minutes. Seconds are rounded down.
func ParseISODuration(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || s[0] != 'P' {
		return 0, false
	}
	var (
		total  float64
		num    strings.Builder
		inTime bool
		seen   bool
	)
	for _, ch := range s[1:] {
		switch {
		case ch == 'T':
			inTime = true
		case (ch >= '0' && ch <= '9') || ch == '.':
			num.WriteRune(ch)
		default:
			if num.Len() == 0 {
				return 0, false
			}
			v, err := strconv.ParseFloat(num.String(), 64)
			if err != nil {
				return 0, false
			}
			num.Reset()
			switch {
			case ch == 'D' && !inTime:
				total += v * 24 * 60
			case ch == 'W' && !inTime:
				total += v * 7 * 24 * 60
			case ch == 'H' && inTime:
				total += v * 60
			case ch == 'M' && inTime:
				total += v
			case ch == 'S' && inTime:
				total += v / 60
			default:
				return 0, false
			}
			seen = true
		}
	}
	if !seen || num.Len() > 0 {
		return 0, false
	}
	return int(total), true
}

func canonicalList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(in))
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			if v := strings.ToLower(strings.TrimSpace(part)); v != "" {
				set[v] = struct{}{}
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// RecipeRequest is the query for GET /api/v1/recipe.
type RecipeRequest struct {
	URL            string `form:"url" binding:"required,url"`
	UseCache       *bool  `form:"use_cache"`
	IncludeRelated *bool  `form:"include_related"`
}

// Defaults applies default values to unset fields.
func (r *RecipeRequest) Defaults() {
	t := true
	if r.UseCache == nil {
		r.UseCache = &t
	}
	if r.IncludeRelated == nil {
		r.IncludeRelated = &t
	}
}

// VideoSearchRequest is the query for GET /api/v1/videos/search.
type VideoSearchRequest struct {
	Query      string `form:"query" binding:"required,min=1,max=100"`
	MaxResults int    `form:"max_results" binding:"omitempty,min=1,max=20"`
}

// Defaults applies default values to unset fields.
func (r *VideoSearchRequest) Defaults() {
	if r.MaxResults == 0 {
		r.MaxResults = 10
	}
}

// BatchURLsRequest is the query for GET /api/v1/batch/urls.
type BatchURLsRequest struct {
	// URLs is a comma-separated list of recipe page URLs.
	URLs          string `form:"urls" binding:"required"`
	MaxConcurrent int    `form:"max_concurrent" binding:"omitempty,min=1,max=10"`
}

// List splits and trims the URL list, dropping empty entries.
func (r *BatchURLsRequest) List() []string {
	var out []string
	for _, u := range strings.Split(r.URLs, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Defaults applies default values to unset fields.
func (r *BatchURLsRequest) Defaults() {
	if r.MaxConcurrent == 0 {
		r.MaxConcurrent = 5
	}
}

// IngredientSearchRequest is the query for GET /api/v1/search/ingredient.
type IngredientSearchRequest struct {
	Ingredient         string `form:"ingredient" binding:"required,min=1,max=100"`
	Limit              int    `form:"limit" binding:"omitempty,min=1,max=30"`
	ExcludeIngredients string `form:"exclude_ingredients"`
}

// AdvancedSearchRequest is the query for GET /api/v1/search/advanced.
type AdvancedSearchRequest struct {
	Query      string  `form:"query" json:"query" binding:"required,min=1,max=100"`
	Cuisine    string  `form:"cuisine" json:"cuisine,omitempty"`
	Diet       string  `form:"diet" json:"diet,omitempty"`
	MaxTime    int     `form:"max_time" json:"max_time,omitempty" binding:"omitempty,min=1"`
	Difficulty string  `form:"difficulty" json:"difficulty,omitempty"`
	MinRating  float64 `form:"min_rating" json:"min_rating,omitempty" binding:"omitempty,min=0,max=5"`
	Limit      int     `form:"limit" json:"limit" binding:"omitempty,min=1,max=30"`
}

// SearchTerms joins the query with the cuisine, diet and difficulty hints.
func (r *AdvancedSearchRequest) SearchTerms() string {
	terms := []string{strings.TrimSpace(r.Query)}
	for _, extra := range []string{r.Cuisine, r.Diet, r.Difficulty} {
		if extra = strings.TrimSpace(extra); extra != "" {
			terms = append(terms, extra)
		}
	}
	return strings.Join(terms, " ")
}

// CategoryRequest is the query for GET /api/v1/search/category/:category.
type CategoryRequest struct {
	Limit         int   `form:"limit" binding:"omitempty,min=1,max=50"`
	IncludeVideos *bool `form:"include_videos"`
}

// Defaults applies default values to unset fields.
func (r *CategoryRequest) Defaults() {
	if r.Limit == 0 {
		r.Limit = 10
	}
	if r.IncludeVideos == nil {
		t := true
		r.IncludeVideos = &t
	}
}

// RecommendationRequest is the query for GET /api/v1/recommendations.
type RecommendationRequest struct {
	// BasedOn is a recipe title or ingredient list.
	BasedOn    string `form:"based_on" binding:"required,min=1,max=100"`
	MaxResults int    `form:"max_results" binding:"omitempty,min=1,max=20"`
}

// TrendingRequest is the query for GET /api/v1/trending.
type TrendingRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}
