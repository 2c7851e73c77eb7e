package extract

import (
	"log/slog"
	nurl "net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"github.com/use-agent/souschef/models"
)

// fieldRule is an ordered selector list for one recipe field. The first
// selector that yields at least one text passing minLen wins.
type fieldRule struct {
	selectors []cascadia.Selector
	minLen    int
}

func rule(minLen int, selectors ...string) fieldRule {
	r := fieldRule{minLen: minLen}
	for _, s := range selectors {
		r.selectors = append(r.selectors, cascadia.MustCompile(s))
	}
	return r
}

// Heuristic extracts recipes from page markup with per-field CSS selector
// lists. Fields resolve independently.
type Heuristic struct {
	title        fieldRule
	ingredients  fieldRule
	instructions fieldRule
	images       []cascadia.Selector
	ogImage      cascadia.Selector
	description  []cascadia.Selector
	servings     fieldRule
	tags         fieldRule
	difficulty   fieldRule
}

// NewHeuristic compiles the selector lists.
func NewHeuristic() *Heuristic {
	return &Heuristic{
		title: rule(1,
			"h1.entry-title",
			"h1.recipe-title",
			"h1.mntl-text-block",
			"h1.headline",
			"h1",
		),
		ingredients: rule(2,
			"[data-test-id*='ingredient']",
			".mntl-structured-ingredients__list-item",
			".recipe-ingredient",
			".ingredients-item-name",
		),
		instructions: rule(10,
			"[data-test-id*='instruction']",
			".mntl-sc-block-group--OL .mntl-sc-block",
			".recipe-instruction",
			".instructions-section-item p",
		),
		images: []cascadia.Selector{
			cascadia.MustCompile(".primary-image img"),
			cascadia.MustCompile(".recipe-image img"),
			cascadia.MustCompile(".mntl-primary-image img"),
		},
		ogImage: cascadia.MustCompile("meta[property='og:image']"),
		description: []cascadia.Selector{
			cascadia.MustCompile("meta[name='description']"),
			cascadia.MustCompile("meta[property='og:description']"),
		},
		servings:   rule(1, ".recipe-yield", "[itemprop='recipeYield']"),
		tags:       rule(1, "a[rel='tag']", ".recipe-tags a"),
		difficulty: rule(1, ".recipe-difficulty", "[data-difficulty]"),
	}
}

func (*Heuristic) Name() string { return "heuristic" }

// Extract never fails; a page without a recognisable title is no match.
func (h *Heuristic) Extract(doc *Document) (models.Recipe, bool) {
	titles := h.title.texts(doc.DOM)
	if len(titles) == 0 {
		return models.Recipe{}, false
	}

	r := models.Recipe{
		Title:        titles[0],
		Ingredients:  h.ingredients.texts(doc.DOM),
		Instructions: h.instructions.texts(doc.DOM),
		ImageURL:     h.image(doc.DOM),
		Description:  h.describe(doc),
		Tags:         h.tags.texts(doc.DOM),
	}
	if s := h.servings.texts(doc.DOM); len(s) > 0 {
		r.Servings = s[0]
	}
	if d := h.difficulty.first(doc.DOM, "data-difficulty"); d != "" {
		r.Difficulty = d
	}
	return r, true
}

// texts returns the passing texts of the first selector that has any.
func (f fieldRule) texts(dom *goquery.Document) []string {
	for _, sel := range f.selectors {
		var out []string
		dom.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
			if t := collapse(s.Text()); utf8.RuneCountInString(t) >= f.minLen {
				out = append(out, t)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// first returns the first passing text, or the value of attr on an element
// with no text.
func (f fieldRule) first(dom *goquery.Document, attr string) string {
	for _, sel := range f.selectors {
		var found string
		dom.FindMatcher(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := collapse(s.Text())
			if t == "" {
				t = collapse(s.AttrOr(attr, ""))
			}
			if utf8.RuneCountInString(t) >= f.minLen {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func (h *Heuristic) image(dom *goquery.Document) string {
	for _, sel := range h.images {
		img := dom.FindMatcher(sel).First()
		if img.Length() == 0 {
			continue
		}
		if src := strings.TrimSpace(img.AttrOr("data-src", "")); src != "" {
			return src
		}
		if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
			return src
		}
	}
	return strings.TrimSpace(dom.FindMatcher(h.ogImage).First().AttrOr("content", ""))
}

func (h *Heuristic) describe(doc *Document) string {
	for _, sel := range h.description {
		if c := collapse(doc.DOM.FindMatcher(sel).First().AttrOr("content", "")); c != "" {
			return c
		}
	}
	return readabilityExcerpt(doc)
}

// readabilityExcerpt runs Mozilla Readability and returns its excerpt.
func readabilityExcerpt(doc *Document) string {
	pageURL, err := nurl.Parse(doc.URL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(doc.Raw), pageURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", doc.URL, "error", err)
		return ""
	}
	return collapse(article.Excerpt)
}
