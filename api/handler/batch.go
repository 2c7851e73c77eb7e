package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/souschef/models"
	"github.com/use-agent/souschef/webhook"
	"golang.org/x/sync/errgroup"
)

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

// batchTTL is how long finished jobs stay queryable.
const batchTTL = time.Hour

func init() {
	// Background goroutine to expire batch jobs older than batchTTL.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-batchTTL).Unix()
			batchStore.Range(func(key, value any) bool {
				if value.(*models.BatchJob).CreatedAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// BatchURLs returns a handler for GET /api/v1/batch/urls.
//
// Scrapes a comma-separated URL list synchronously. Every requested URL
// ends up in exactly one of successful_recipes or failed_urls.
func BatchURLs(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchURLsRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		req.Defaults()

		urls := req.List()
		if len(urls) == 0 {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "no URLs provided", nil))
			return
		}
		if limit := d.Config.Scraper.MaxBatchURLs; limit > 0 && len(urls) > limit {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput,
				fmt.Sprintf("Maximum %d URLs allowed", limit), nil))
			return
		}

		res := d.Scraper.Batch(c.Request.Context(), urls, req.MaxConcurrent)
		c.JSON(http.StatusOK, models.BatchURLsResponse{
			SuccessfulRecipes: res.Recipes,
			FailedURLs:        res.FailedURLs,
			TotalRequested:    len(urls),
			SuccessfulCount:   len(res.Recipes),
			FailedCount:       len(res.FailedURLs),
		})
	}
}

// PostBatch returns a handler for POST /api/v1/batch/scrape.
// It validates the request, registers a job and scrapes in the background.
// When webhook_url is set, a batch.completed event is delivered once the
// job finishes.
func PostBatch(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, invalidInput(err))
			return
		}
		if req.MaxConcurrent == 0 {
			req.MaxConcurrent = d.Config.Scraper.MaxConcurrent
		}

		job := &models.BatchJob{
			ID:        "batch-" + uuid.NewString(),
			Status:    models.BatchProcessing,
			Total:     len(req.URLs),
			CreatedAt: time.Now().Unix(),
		}
		batchStore.Store(job.ID, job)

		go d.runBatch(job, req)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.ID,
			Status: models.BatchProcessing,
			Total:  job.Total,
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := batchStore.Load(c.Param("id"))
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "batch job not found", nil))
			return
		}
		c.JSON(http.StatusOK, val.(*models.BatchJob).Snapshot())
	}
}

// runBatch scrapes every URL of the job with bounded concurrency, then
// records the outcome and fires the webhook.
func (d *Deps) runBatch(job *models.BatchJob, req models.BatchRequest) {
	ctx := context.Background()
	found := make([]*models.Recipe, len(req.URLs))

	var g errgroup.Group
	g.SetLimit(req.MaxConcurrent)
	for i, target := range req.URLs {
		g.Go(func() error {
			defer job.Progress()
			if r, ok := d.Scraper.ScrapeRecipe(ctx, target, false); ok {
				found[i] = &r
			}
			return nil
		})
	}
	_ = g.Wait()

	recipes := []models.Recipe{}
	failed := []string{}
	for i, r := range found {
		if r == nil {
			failed = append(failed, req.URLs[i])
			continue
		}
		recipes = append(recipes, *r)
	}
	job.Finish(recipes, failed)

	snap := job.Snapshot()
	slog.Info("batch job finished",
		"id", snap.ID,
		"status", snap.Status,
		"recipes", len(recipes),
		"failed", len(failed),
		"total", snap.Total,
	)

	if req.WebhookURL != "" && d.Webhooks != nil {
		d.Webhooks.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     snap.ID,
			Timestamp: time.Now().Unix(),
			Data:      snap,
		}, nil)
	}
}
