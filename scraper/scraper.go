// Package scraper runs the recipe pipeline: search the recipe site, fetch
// each result page with paced launches, extract records and optionally
// attach a tutorial video.
package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/souschef/config"
	"github.com/use-agent/souschef/engine"
	"github.com/use-agent/souschef/extract"
	"github.com/use-agent/souschef/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// VideoFinder returns a tutorial video URL for a recipe title, or "".
type VideoFinder interface {
	Single(ctx context.Context, query string) string
}

// Scraper is safe for concurrent use.
type Scraper struct {
	fetcher engine.Engine
	chain   *extract.Chain
	videos  VideoFinder
	cfg     config.ScraperConfig
}

// New creates a Scraper. videos may be nil, in which case no video links
// are attached.
func New(fetcher engine.Engine, chain *extract.Chain, videos VideoFinder, cfg config.ScraperConfig) *Scraper {
	if chain == nil {
		chain = extract.DefaultChain()
	}
	return &Scraper{fetcher: fetcher, chain: chain, videos: videos, cfg: cfg}
}

// BatchResult is the outcome of scraping a URL list. Every input URL is
// in exactly one of the two lists.
type BatchResult struct {
	Recipes    []models.Recipe
	FailedURLs []string
}

// Search finds up to maxResults recipes for query. Search page failures
// and per-recipe failures never surface as errors; they shrink the result.
func (s *Scraper) Search(ctx context.Context, query string, maxResults int, includeVideos bool) []models.Recipe {
	searchURL := s.baseURL() + "/search?q=" + url.QueryEscape(query)

	res, err := s.fetcher.Fetch(ctx, &engine.FetchRequest{URL: searchURL, Timeout: s.cfg.Timeout})
	if err != nil {
		slog.Warn("search page fetch failed", "query", query, "error", err)
		return []models.Recipe{}
	}

	links := recipeLinks(res.HTML, s.baseURL(), maxResults)
	if len(links) == 0 {
		slog.Info("no recipe links found", "query", query)
		return []models.Recipe{}
	}

	found := s.scrapeAll(ctx, links, includeVideos, s.cfg.MaxConcurrent, s.cfg.Delay)

	recipes := make([]models.Recipe, 0, len(found))
	for _, r := range found {
		if r != nil {
			recipes = append(recipes, *r)
		}
	}
	if s.cfg.CollapseDuplicates {
		recipes = collapseDuplicates(recipes)
	}

	slog.Debug("search complete", "query", query, "links", len(links), "recipes", len(recipes))
	return recipes
}

// ScrapeRecipe fetches one recipe page. ok is false when the page could
// not be fetched or no strategy found a titled recipe.
func (s *Scraper) ScrapeRecipe(ctx context.Context, recipeURL string, includeVideos bool) (models.Recipe, bool) {
	res, err := s.fetcher.Fetch(ctx, &engine.FetchRequest{URL: recipeURL, Timeout: s.cfg.Timeout})
	if err != nil {
		slog.Debug("recipe fetch failed", "url", recipeURL, "error", err)
		return models.Recipe{}, false
	}

	r, ok := s.chain.ExtractHTML(res.HTML, recipeURL)
	if !ok {
		slog.Debug("no recipe found on page", "url", recipeURL)
		return models.Recipe{}, false
	}

	if includeVideos && s.videos != nil {
		r.VideoURL = s.videos.Single(ctx, r.Title)
	}
	return r, true
}

// Batch scrapes urls without video enrichment, at most maxConcurrent at a
// time. Failed URLs keep their input order.
func (s *Scraper) Batch(ctx context.Context, urls []string, maxConcurrent int) BatchResult {
	found := s.scrapeAll(ctx, urls, false, maxConcurrent, 0)

	out := BatchResult{Recipes: []models.Recipe{}, FailedURLs: []string{}}
	for i, r := range found {
		if r == nil {
			out.FailedURLs = append(out.FailedURLs, urls[i])
			continue
		}
		out.Recipes = append(out.Recipes, *r)
	}
	return out
}

// scrapeAll scrapes every URL and returns results in input order; a nil
// entry is a failure. Launches are spaced by delay (the first starts
// immediately) and at most limit run at once.
func (s *Scraper) scrapeAll(ctx context.Context, urls []string, includeVideos bool, limit int, delay time.Duration) []*models.Recipe {
	results := make([]*models.Recipe, len(urls))

	pace := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		pace = rate.NewLimiter(rate.Every(delay), 1)
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, u := range urls {
		if err := pace.Wait(ctx); err != nil {
			slog.Debug("scrape launches stopped", "remaining", len(urls)-i, "error", err)
			break
		}
		g.Go(func() error {
			if r, ok := s.ScrapeRecipe(ctx, u, includeVideos); ok {
				results[i] = &r
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scraper) baseURL() string {
	return strings.TrimRight(s.cfg.BaseURL, "/")
}
