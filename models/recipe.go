package models

// Nutrition keys. Only these keys ever appear in Recipe.Nutrition.
const (
	NutritionCalories = "calories"
	NutritionProtein  = "protein"
	NutritionCarbs    = "carbs"
	NutritionFat      = "fat"
	NutritionFiber    = "fiber"
	NutritionSugar    = "sugar"
)

// Recipe is a normalised recipe record assembled from one scraped page.
// A Recipe is only ever returned when Title is non-empty.
type Recipe struct {
	Title        string            `json:"title"`
	Ingredients  []string          `json:"ingredients"`
	Instructions []string          `json:"instructions"`
	ImageURL     string            `json:"image_url,omitempty"`
	TimeInfo     TimeInfo          `json:"time_info"`
	Rating       *Rating           `json:"rating,omitempty"`
	Servings     string            `json:"servings,omitempty"`
	Description  string            `json:"description,omitempty"`
	Difficulty   string            `json:"difficulty,omitempty"`
	VideoURL     string            `json:"video_url,omitempty"`
	SourceURL    string            `json:"source_url"`
	Nutrition    map[string]string `json:"nutrition,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
}

// TimeInfo holds the durations exactly as the source page declares them
// (typically ISO-8601, e.g. "PT20M"). Any subset may be present.
type TimeInfo struct {
	PrepTime  string `json:"prep_time,omitempty"`
	CookTime  string `json:"cook_time,omitempty"`
	TotalTime string `json:"total_time,omitempty"`
}

// IsZero reports whether no duration is set.
func (t TimeInfo) IsZero() bool {
	return t.PrepTime == "" && t.CookTime == "" && t.TotalTime == ""
}

// Rating is the aggregate rating advertised by the source page.
type Rating struct {
	Value *float64 `json:"value,omitempty"`
	Count *int     `json:"count,omitempty"`
}

// Video is a single tutorial video result.
type Video struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Normalize replaces nil slices with empty ones so the record always
// serialises lists as [] rather than null.
func (r *Recipe) Normalize() {
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
}
