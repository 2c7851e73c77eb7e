// Package handler implements the /api/v1 endpoints.
package handler

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/souschef/cache"
	"github.com/use-agent/souschef/config"
	"github.com/use-agent/souschef/llm"
	"github.com/use-agent/souschef/models"
	"github.com/use-agent/souschef/scraper"
	"github.com/use-agent/souschef/video"
	"github.com/use-agent/souschef/webhook"
)

// BrowserStatus reports whether the optional browser engine is running.
type BrowserStatus interface {
	Ready() bool
}

// Deps carries the services shared by every handler. It is built once in
// main and never mutated afterwards.
type Deps struct {
	Scraper  *scraper.Scraper
	Videos   *video.Lookup
	Cache    *cache.Manager
	Refiner  *llm.Refiner    // optional
	Webhooks *webhook.Sender // optional
	Browser  BrowserStatus   // optional
	Config   *config.Config
	Started  time.Time
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ErrorResponse{Error: scrapeErr.ToDetail()})
}

// invalidInput wraps a binding or validation failure.
func invalidInput(err error) *models.ScrapeError {
	return models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeUpstream:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

// seconds returns the time since start in seconds, rounded to milliseconds.
func seconds(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*1000) / 1000
}

// nonNil keeps empty result lists serialised as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
