// Package engine fetches remote pages. HTTPEngine covers static pages; the
// optional RodEngine renders JavaScript-heavy pages in headless Chrome, and
// Dispatcher races the available engines.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/use-agent/souschef/models"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod").
	Name() string

	// Fetch retrieves the page for req. Any non-2xx response is an error.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL string

	// Headers override the engine's default header profile.
	Headers map[string]string

	// Timeout bounds this fetch; zero uses the engine default.
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// tell timeouts from navigation failures.
func categorizeError(err error, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

// statusError reports a non-2xx upstream response.
func statusError(status int, url string) *models.ScrapeError {
	return models.NewScrapeError(models.ErrCodeUpstream,
		fmt.Sprintf("upstream returned HTTP %d for %s", status, url), nil)
}
