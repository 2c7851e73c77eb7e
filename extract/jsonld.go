package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
	"github.com/use-agent/souschef/models"
)

// JSONLD reads schema.org Recipe records embedded as
// <script type="application/ld+json">.
type JSONLD struct{}

// NewJSONLD creates the structured data extractor.
func NewJSONLD() *JSONLD { return &JSONLD{} }

func (*JSONLD) Name() string { return "jsonld" }

// Extract maps the first Recipe-typed candidate on the page. Malformed
// blocks are skipped. A first match without a name is no match.
func (j *JSONLD) Extract(doc *Document) (models.Recipe, bool) {
	node := j.find(doc)
	if node == nil {
		return models.Recipe{}, false
	}
	r := mapRecipe(node)
	return r, r.Title != ""
}

func (*JSONLD) find(doc *Document) map[string]any {
	var found map[string]any
	doc.DOM.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		for _, c := range candidates(data) {
			if isRecipe(c["@type"]) {
				found = c
				return false
			}
		}
		return true
	})
	return found
}

// candidates lists the objects a decoded block offers: the object itself,
// each element of a top-level list and each element of an @graph list.
func candidates(data any) []map[string]any {
	var out []map[string]any
	switch v := data.(type) {
	case map[string]any:
		out = append(out, v)
		if graph, ok := v["@graph"].([]any); ok {
			for _, g := range graph {
				if m, ok := g.(map[string]any); ok {
					out = append(out, m)
				}
			}
		}
	case []any:
		for _, item := range v {
			out = append(out, candidates(item)...)
		}
	}
	return out
}

func isRecipe(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Recipe"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

// nutritionFields maps schema.org NutritionInformation properties to
// Recipe.Nutrition keys.
var nutritionFields = []struct{ src, dst string }{
	{"calories", models.NutritionCalories},
	{"proteinContent", models.NutritionProtein},
	{"carbohydrateContent", models.NutritionCarbs},
	{"fatContent", models.NutritionFat},
	{"fiberContent", models.NutritionFiber},
	{"sugarContent", models.NutritionSugar},
}

func mapRecipe(m map[string]any) models.Recipe {
	r := models.Recipe{
		Title:        cleanText(str(m["name"])),
		Description:  cleanText(str(m["description"])),
		Servings:     servings(m["recipeYield"]),
		ImageURL:     image(m["image"]),
		Ingredients:  stringList(m["recipeIngredient"]),
		Instructions: instructions(m["recipeInstructions"]),
		Tags:         tags(m["keywords"]),
	}

	if v, ok := m["prepTime"]; ok {
		r.TimeInfo.PrepTime = str(v)
	}
	if v, ok := m["cookTime"]; ok {
		r.TimeInfo.CookTime = str(v)
	}
	if v, ok := m["totalTime"]; ok {
		r.TimeInfo.TotalTime = str(v)
	}

	if agg, ok := m["aggregateRating"].(map[string]any); ok {
		rating := &models.Rating{}
		if f, ok := number(agg["ratingValue"]); ok {
			rating.Value = &f
		}
		if f, ok := number(agg["ratingCount"]); ok {
			n := int(f)
			rating.Count = &n
		}
		if rating.Value != nil || rating.Count != nil {
			r.Rating = rating
		}
	}

	if n, ok := m["nutrition"].(map[string]any); ok {
		for _, f := range nutritionFields {
			if v := collapse(str(n[f.src])); v != "" {
				if r.Nutrition == nil {
					r.Nutrition = make(map[string]string, len(nutritionFields))
				}
				r.Nutrition[f.dst] = v
			}
		}
	}

	return r
}

// str renders scalars as text; anything else is empty.
func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// stringList keeps the non-empty strings of a list, dropping other values.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return []string{cleanText(s)}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = cleanText(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// servings accepts a string, a number or a list whose first item is used.
func servings(v any) string {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return ""
		}
		v = list[0]
	}
	return collapse(str(v))
}

// image accepts a URL string, an ImageObject, or a list of either.
func image(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return strings.TrimSpace(str(t["url"]))
	case []any:
		if len(t) == 0 {
			return ""
		}
		switch first := t[0].(type) {
		case string:
			return strings.TrimSpace(first)
		case map[string]any:
			return strings.TrimSpace(str(first["url"]))
		}
	}
	return ""
}

// instructions flattens recipeInstructions into ordered step texts.
func instructions(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			for _, line := range strings.Split(t, "\n") {
				if s := cleanText(line); s != "" {
					out = append(out, s)
				}
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			if list, ok := t["itemListElement"]; ok {
				walk(list)
				return
			}
			if s := cleanText(str(t["text"])); s != "" {
				out = append(out, s)
			}
		}
	}
	walk(v)
	return out
}

// tags accepts a keyword list or a comma-separated string.
func tags(v any) []string {
	switch t := v.(type) {
	case []any:
		return stringList(t)
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if s := collapse(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
