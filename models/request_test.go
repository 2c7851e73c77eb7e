package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"PT20M", 20, true},
		{"PT1H30M", 90, true},
		{"pt45m", 45, true},
		{"P1DT2H", 26 * 60, true},
		{"PT90S", 1, true},
		{"PT0.5H", 30, true},
		{"P1W", 7 * 24 * 60, true},
		{"", 0, false},
		{"20 minutes", 0, false},
		{"PT", 0, false},
		{"PT20", 0, false},
		{"P2M", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseISODuration(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestTotalMinutes(t *testing.T) {
	m, ok := TotalMinutes(TimeInfo{TotalTime: "PT1H"})
	assert.True(t, ok)
	assert.Equal(t, 60, m)

	m, ok = TotalMinutes(TimeInfo{PrepTime: "PT10M", CookTime: "PT25M"})
	assert.True(t, ok)
	assert.Equal(t, 35, m)

	_, ok = TotalMinutes(TimeInfo{})
	assert.False(t, ok)
}

func TestFilters_Match(t *testing.T) {
	pancakes := Recipe{
		Title:       "Buttermilk Pancakes",
		Ingredients: []string{"2 cups Flour", "1 cup buttermilk", "1 egg"},
		Difficulty:  "Easy",
		Tags:        []string{"Breakfast", "American"},
		TimeInfo:    TimeInfo{TotalTime: "PT25M"},
		Rating:      &Rating{Value: ptr(4.6), Count: ptr(300)},
	}

	cases := []struct {
		name string
		f    Filters
		want bool
	}{
		{"no filters", Filters{}, true},
		{"difficulty case-insensitive", Filters{Difficulty: "easy"}, true},
		{"difficulty mismatch", Filters{Difficulty: "hard"}, false},
		{"all ingredients present", Filters{Ingredients: []string{"flour", "egg"}}, true},
		{"missing ingredient", Filters{Ingredients: []string{"flour", "banana"}}, false},
		{"excluded ingredient", Filters{ExcludeIngredients: []string{"buttermilk"}}, false},
		{"any tag", Filters{Tags: []string{"dinner", "breakfast"}}, true},
		{"no tag", Filters{Tags: []string{"dinner"}}, false},
		{"cuisine by tag", Filters{Cuisine: "american"}, true},
		{"cuisine by title", Filters{Cuisine: "buttermilk"}, true},
		{"cuisine mismatch", Filters{Cuisine: "thai"}, false},
		{"within max time", Filters{MaxTimeMinutes: 30}, true},
		{"over max time", Filters{MaxTimeMinutes: 20}, false},
		{"rating met", Filters{MinRating: 4.5}, true},
		{"rating not met", Filters{MinRating: 4.8}, false},
	}
	for _, tc := range cases {
		tc.f.Normalize()
		assert.Equal(t, tc.want, tc.f.Match(pancakes), tc.name)
	}
}

func TestFilters_UnknownValuesExclude(t *testing.T) {
	bare := Recipe{Title: "Mystery Stew"}
	assert.False(t, Filters{MaxTimeMinutes: 60}.Match(bare))
	assert.False(t, Filters{MinRating: 1}.Match(bare))
	assert.True(t, Filters{ExcludeIngredients: []string{"nuts"}}.Match(bare))
}

func TestFilters_NormalizeAndApply(t *testing.T) {
	f := Filters{Ingredients: []string{" Egg,flour", "egg"}, Cuisine: " Thai "}
	f.Normalize()
	assert.Equal(t, []string{"egg", "flour"}, f.Ingredients)
	assert.Equal(t, "thai", f.Cuisine)

	recipes := []Recipe{
		{Title: "A", Ingredients: []string{"egg", "flour"}, Tags: []string{"thai"}},
		{Title: "B", Ingredients: []string{"egg"}, Tags: []string{"thai"}},
		{Title: "C", Ingredients: []string{"flour", "egg"}, Tags: []string{"thai"}},
	}
	got := f.Apply(recipes)
	assert.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "C", got[1].Title)
}

func TestSearchRequest_CacheParamsOrderIndependent(t *testing.T) {
	a := SearchRequest{Query: "Soup", Filters: Filters{Tags: []string{"vegan", "quick"}}}
	b := SearchRequest{Query: "soup ", Filters: Filters{Tags: []string{"quick", "VEGAN"}}}
	a.Defaults()
	b.Defaults()
	assert.Equal(t, a.CacheParams(), b.CacheParams())

	c := SearchRequest{Query: "soup", MaxResults: 20}
	c.Defaults()
	assert.NotEqual(t, a.CacheParams(), c.CacheParams())
}

func TestBatchURLsRequest_List(t *testing.T) {
	r := BatchURLsRequest{URLs: " https://a.test/1 ,,https://a.test/2, "}
	assert.Equal(t, []string{"https://a.test/1", "https://a.test/2"}, r.List())
}

func TestAdvancedSearchRequest_SearchTerms(t *testing.T) {
	r := AdvancedSearchRequest{Query: "curry", Cuisine: "thai", Difficulty: " easy "}
	assert.Equal(t, "curry thai easy", r.SearchTerms())
}

func TestBatchJob_Finish(t *testing.T) {
	job := &BatchJob{ID: "j", Total: 2, Status: BatchProcessing}
	job.Progress()
	assert.Equal(t, 1, job.Snapshot().Completed)

	job.Finish([]Recipe{{Title: "x"}}, []string{"u"})
	snap := job.Snapshot()
	assert.Equal(t, BatchPartial, snap.Status)
	assert.Equal(t, 2, snap.Completed)

	job.Finish(nil, []string{"u", "v"})
	assert.Equal(t, BatchFailed, job.Snapshot().Status)

	job.Finish([]Recipe{{Title: "x"}, {Title: "y"}}, nil)
	assert.Equal(t, BatchCompleted, job.Snapshot().Status)
}
