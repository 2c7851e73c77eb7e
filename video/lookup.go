// Package video finds cooking tutorial videos for a recipe query by
// scraping the video platform's public search results page.
package video

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/use-agent/souschef/config"
	"github.com/use-agent/souschef/engine"
	"github.com/use-agent/souschef/metrics"
	"github.com/use-agent/souschef/models"
)

// Platform is reported in video search responses.
const Platform = "youtube"

// querySuffix narrows platform searches to cooking tutorials.
const querySuffix = " recipe cooking tutorial"

// initialDataVideo pairs a video ID with its title inside the
// ytInitialData blob.
var initialDataVideo = regexp.MustCompile(`"videoId":"([^"]+)".*?"title":\{"runs":\[\{"text":"([^"]+)"`)

// Lookup searches for videos. Every failure yields an empty result; it
// never returns an error.
type Lookup struct {
	fetcher engine.Engine
	cfg     config.VideoConfig
	breaker *gobreaker.CircuitBreaker[[]models.Video]
}

// New creates a Lookup that fetches search pages with fetcher.
func New(fetcher engine.Engine, cfg config.VideoConfig) *Lookup {
	l := &Lookup{fetcher: fetcher, cfg: cfg}
	threshold := cfg.Breaker.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	l.breaker = gobreaker.NewCircuitBreaker[[]models.Video](gobreaker.Settings{
		Name:        "video-lookup",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.VideoBreakerState.Set(float64(to))
		},
	})
	return l
}

// Search returns up to max videos for query.
func (l *Lookup) Search(ctx context.Context, query string, max int) []models.Video {
	query = strings.TrimSpace(query)
	if query == "" || max <= 0 {
		return []models.Video{}
	}

	videos, err := l.breaker.Execute(func() ([]models.Video, error) {
		return l.search(ctx, query, max)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.VideoLookups.WithLabelValues("breaker_open").Inc()
		return []models.Video{}
	case err != nil:
		slog.Debug("video lookup failed", "query", query, "error", err)
		metrics.VideoLookups.WithLabelValues("error").Inc()
		return []models.Video{}
	}

	if len(videos) == 0 {
		metrics.VideoLookups.WithLabelValues("empty").Inc()
		return []models.Video{}
	}
	metrics.VideoLookups.WithLabelValues("found").Inc()
	return videos
}

// Single returns the URL of the first video for query, or "".
func (l *Lookup) Single(ctx context.Context, query string) string {
	videos := l.Search(ctx, query, 1)
	if len(videos) == 0 {
		return ""
	}
	return videos[0].URL
}

// search fetches and parses one results page. Only fetch failures are
// errors; a page without videos is an empty, successful result.
func (l *Lookup) search(ctx context.Context, query string, max int) ([]models.Video, error) {
	base := strings.TrimRight(l.cfg.BaseURL, "/")
	searchURL := base + "/results?search_query=" + url.QueryEscape(query+querySuffix)

	res, err := l.fetcher.Fetch(ctx, &engine.FetchRequest{URL: searchURL, Timeout: l.cfg.Timeout})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return []models.Video{}, nil
	}

	videos := l.fromInitialData(doc, max)
	if len(videos) == 0 {
		videos = l.fromAnchors(doc, max)
	}
	return videos, nil
}

// fromInitialData reads video IDs and titles from the first script that
// defines ytInitialData.
func (l *Lookup) fromInitialData(doc *goquery.Document, max int) []models.Video {
	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := s.Text(); strings.Contains(text, "var ytInitialData") {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return nil
	}

	base := strings.TrimRight(l.cfg.BaseURL, "/")
	thumbs := strings.TrimRight(l.cfg.ThumbnailBase, "/")
	seen := make(map[string]struct{})
	var out []models.Video
	for _, m := range initialDataVideo.FindAllStringSubmatch(script, -1) {
		if len(out) >= max {
			break
		}
		id, title := m[1], m[2]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, models.Video{
			Title:     title,
			URL:       base + "/watch?v=" + id,
			Thumbnail: thumbs + "/vi/" + id + "/maxresdefault.jpg",
		})
	}
	return out
}

// fromAnchors collects plain watch links when no initial data is present.
func (l *Lookup) fromAnchors(doc *goquery.Document, max int) []models.Video {
	base := strings.TrimRight(l.cfg.BaseURL, "/")
	var out []models.Video
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(out) >= max {
			return false
		}
		href := s.AttrOr("href", "")
		if !strings.Contains(href, "/watch?v=") {
			return true
		}
		if strings.HasPrefix(href, "/") {
			href = base + href
		}
		title := strings.TrimSpace(s.AttrOr("title", ""))
		if title == "" {
			title = "Recipe Video"
		}
		out = append(out, models.Video{Title: title, URL: href})
		return true
	})
	return out
}
