package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/souschef/models"
)

const pageURL = "https://www.allrecipes.com/recipe/12345/lasagna/"

func page(head, body string) string {
	return "<html><head>" + head + "</head><body>" + body + "</body></html>"
}

func ldScript(js string) string {
	return `<script type="application/ld+json">` + js + `</script>`
}

func mustParse(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := Parse(raw, pageURL)
	require.NoError(t, err)
	return doc
}

func TestJSONLD_FullRecipe(t *testing.T) {
	raw := page(ldScript(`{
		"@context": "https://schema.org",
		"@type": "Recipe",
		"name": "World's Best Lasagna",
		"description": "<p>A <strong>classic</strong> lasagna.</p>",
		"recipeIngredient": ["1 pound sausage", 42, "12 lasagna noodles"],
		"recipeInstructions": [
			{"@type": "HowToStep", "text": "Cook the sausage."},
			"Boil the noodles.",
			{"@type": "HowToSection", "name": "Assembly", "itemListElement": [
				{"@type": "HowToStep", "text": "Layer everything."},
				{"@type": "HowToStep", "text": ""}
			]}
		],
		"prepTime": "PT30M",
		"totalTime": "PT3H15M",
		"aggregateRating": {"ratingValue": "4.8", "ratingCount": 19000},
		"image": [{"url": "https://img.example.com/lasagna.jpg"}],
		"recipeYield": ["12", "12 servings"],
		"nutrition": {"calories": "448 kcal", "proteinContent": "30 g", "sodiumContent": "1g"},
		"keywords": "italian, pasta ,  dinner"
	}`), "")

	r, ok := NewJSONLD().Extract(mustParse(t, raw))
	require.True(t, ok)

	assert.Equal(t, "World's Best Lasagna", r.Title)
	assert.Equal(t, "A classic lasagna.", r.Description)
	assert.Equal(t, []string{"1 pound sausage", "12 lasagna noodles"}, r.Ingredients)
	assert.Equal(t, []string{"Cook the sausage.", "Boil the noodles.", "Layer everything."}, r.Instructions)
	assert.Equal(t, models.TimeInfo{PrepTime: "PT30M", TotalTime: "PT3H15M"}, r.TimeInfo)
	require.NotNil(t, r.Rating)
	assert.InDelta(t, 4.8, *r.Rating.Value, 1e-9)
	assert.Equal(t, 19000, *r.Rating.Count)
	assert.Equal(t, "https://img.example.com/lasagna.jpg", r.ImageURL)
	assert.Equal(t, "12", r.Servings)
	assert.Equal(t, map[string]string{"calories": "448 kcal", "protein": "30 g"}, r.Nutrition)
	assert.Equal(t, []string{"italian", "pasta", "dinner"}, r.Tags)
}

func TestJSONLD_GraphAndTypeList(t *testing.T) {
	raw := page(ldScript(`{"@context":"https://schema.org","@graph":[
		{"@type":"WebPage","name":"Page"},
		{"@type":["Recipe","NewsArticle"],"name":"Graph Soup","recipeInstructions":"Chop.\nSimmer for an hour.\n\n"}
	]}`), "")

	r, ok := NewJSONLD().Extract(mustParse(t, raw))
	require.True(t, ok)
	assert.Equal(t, "Graph Soup", r.Title)
	assert.Equal(t, []string{"Chop.", "Simmer for an hour."}, r.Instructions)
}

func TestJSONLD_TopLevelList(t *testing.T) {
	raw := page(ldScript(`[{"@type":"Organization","name":"Site"},{"@type":"Recipe","name":"Pancakes","image":"https://img/p.jpg","recipeYield":4}]`), "")

	r, ok := NewJSONLD().Extract(mustParse(t, raw))
	require.True(t, ok)
	assert.Equal(t, "Pancakes", r.Title)
	assert.Equal(t, "https://img/p.jpg", r.ImageURL)
	assert.Equal(t, "4", r.Servings)
	assert.Nil(t, r.Rating)
}

func TestJSONLD_MalformedBlockSkipped(t *testing.T) {
	raw := page(ldScript(`{"@type": "Recipe", "name": `)+ldScript(`{"@type":"Recipe","name":"Waffles"}`), "")

	r, ok := NewJSONLD().Extract(mustParse(t, raw))
	require.True(t, ok)
	assert.Equal(t, "Waffles", r.Title)
}

func TestJSONLD_NoRecipe(t *testing.T) {
	raw := page(ldScript(`{"@type":"Article","name":"Not food"}`), "<h1>Hi</h1>")
	_, ok := NewJSONLD().Extract(mustParse(t, raw))
	assert.False(t, ok)
}

func TestHeuristic_Fields(t *testing.T) {
	raw := page(
		`<meta name="description" content="  Creamy and quick. ">`+
			`<meta property="og:image" content="https://img/og.jpg">`,
		`<h1 class="headline">Chicken Alfredo</h1>
		<ul>
			<li class="mntl-structured-ingredients__list-item">1 lb fettuccine</li>
			<li class="mntl-structured-ingredients__list-item">x</li>
			<li class="mntl-structured-ingredients__list-item">2 cups cream</li>
		</ul>
		<div class="mntl-sc-block-group--OL">
			<div class="mntl-sc-block">Stir.</div>
			<div class="mntl-sc-block">Boil the pasta until al dente.</div>
		</div>
		<div class="primary-image"><img src="https://img/small.jpg" data-src="https://img/large.jpg"></div>
		<span class="recipe-yield">4 servings</span>
		<div class="recipe-tags"><a>pasta</a><a>dinner</a></div>
		<span data-difficulty="Easy"></span>`)

	r, ok := NewHeuristic().Extract(mustParse(t, raw))
	require.True(t, ok)

	assert.Equal(t, "Chicken Alfredo", r.Title)
	assert.Equal(t, []string{"1 lb fettuccine", "2 cups cream"}, r.Ingredients, "single-character fragments are dropped")
	assert.Equal(t, []string{"Boil the pasta until al dente."}, r.Instructions, "fragments under 10 characters are dropped")
	assert.Equal(t, "https://img/large.jpg", r.ImageURL, "data-src is preferred")
	assert.Equal(t, "Creamy and quick.", r.Description)
	assert.Equal(t, "4 servings", r.Servings)
	assert.Equal(t, []string{"pasta", "dinner"}, r.Tags)
	assert.Equal(t, "Easy", r.Difficulty)
}

func TestHeuristic_FilteredSelectorFallsThrough(t *testing.T) {
	raw := page("", `<h1>Toast</h1>
		<div data-test-id="ingredient-a">-</div>
		<span class="recipe-ingredient">2 slices bread</span>
		<meta property="og:image" content="https://img/og.jpg">`)

	r, ok := NewHeuristic().Extract(mustParse(t, raw))
	require.True(t, ok)
	assert.Equal(t, []string{"2 slices bread"}, r.Ingredients)
	assert.Equal(t, "https://img/og.jpg", r.ImageURL)
}

func TestHeuristic_NoTitle(t *testing.T) {
	_, ok := NewHeuristic().Extract(mustParse(t, page("", "<p>nothing here</p>")))
	assert.False(t, ok)
}

func TestChain_JSONLDPreferred(t *testing.T) {
	raw := page(ldScript(`{"@type":"Recipe","name":"From JSON-LD"}`), "<h1>From Markup</h1>")

	r, strategy, ok := DefaultChain().Extract(mustParse(t, raw))
	require.True(t, ok)
	assert.Equal(t, "jsonld", strategy)
	assert.Equal(t, "From JSON-LD", r.Title)
	assert.Equal(t, pageURL, r.SourceURL)
	assert.NotNil(t, r.Ingredients, "lists are normalised to empty, not nil")
}

func TestChain_EmptyNameFallsBackToHeuristic(t *testing.T) {
	raw := page(ldScript(`{"@type":"Recipe","name":"","recipeIngredient":["salt"]}`), "<h1>Markup Title</h1>")

	r, strategy, ok := DefaultChain().Extract(mustParse(t, raw))
	require.True(t, ok)
	assert.Equal(t, "heuristic", strategy)
	assert.Equal(t, "Markup Title", r.Title)
}

func TestChain_NoRecipe(t *testing.T) {
	_, ok := DefaultChain().ExtractHTML("<html><body><p>404</p></body></html>", pageURL)
	assert.False(t, ok)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Mix well and bake.", cleanText("<p>Mix <em>well</em> and <a href=\"/x\">bake</a>.</p>"))
	assert.Equal(t, "Salt & pepper", cleanText("Salt &amp; pepper"))
	assert.Equal(t, "plain text", cleanText("  plain \n text "))
}
