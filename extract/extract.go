// Package extract turns a fetched recipe page into a models.Recipe.
//
// Strategies are tried in order by a Chain: embedded JSON-LD first, then
// CSS selector heuristics. A strategy never errors; it either produces a
// titled recipe or reports no match.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/souschef/metrics"
	"github.com/use-agent/souschef/models"
	"golang.org/x/net/html"
)

// Document is a parsed page ready for extraction.
type Document struct {
	URL  string
	Raw  string
	Root *html.Node
	DOM  *goquery.Document
}

// Parse builds a Document from raw HTML. The HTML5 parser recovers from
// malformed markup, so an error only means the input could not be read.
func Parse(rawHTML, pageURL string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	return &Document{
		URL:  pageURL,
		Raw:  rawHTML,
		Root: root,
		DOM:  goquery.NewDocumentFromNode(root),
	}, nil
}

// Extractor is one extraction strategy.
type Extractor interface {
	Name() string
	Extract(doc *Document) (models.Recipe, bool)
}

// Chain runs extractors in order and returns the first titled recipe.
type Chain struct {
	extractors []Extractor
}

// NewChain creates a Chain over the given extractors.
func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors}
}

// DefaultChain is JSON-LD followed by the selector heuristics.
func DefaultChain() *Chain {
	return NewChain(NewJSONLD(), NewHeuristic())
}

// Extract returns the first recipe with a non-empty title and the name of
// the strategy that produced it.
func (c *Chain) Extract(doc *Document) (models.Recipe, string, bool) {
	for _, e := range c.extractors {
		r, ok := e.Extract(doc)
		if !ok || strings.TrimSpace(r.Title) == "" {
			continue
		}
		r.SourceURL = doc.URL
		r.Normalize()
		metrics.ExtractTotal.WithLabelValues(e.Name()).Inc()
		return r, e.Name(), true
	}
	metrics.ExtractTotal.WithLabelValues("none").Inc()
	return models.Recipe{}, "", false
}

// ExtractHTML parses rawHTML and runs the chain over it.
func (c *Chain) ExtractHTML(rawHTML, pageURL string) (models.Recipe, bool) {
	doc, err := Parse(rawHTML, pageURL)
	if err != nil {
		return models.Recipe{}, false
	}
	r, _, ok := c.Extract(doc)
	return r, ok
}
