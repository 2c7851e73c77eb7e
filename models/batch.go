package models

import "sync"

// BatchRequest is the payload for POST /api/v1/batch/scrape.
type BatchRequest struct {
	// URLs is the list of recipe pages to scrape. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=100,dive,url"`

	// MaxConcurrent bounds in-flight scrapes. Default: 5.
	MaxConcurrent int `json:"max_concurrent,omitempty" binding:"omitempty,min=1,max=10"`

	// WebhookURL receives a batch.completed event when the job finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook body with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// BatchResponse is the immediate response for POST /api/v1/batch/scrape.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	Completed  int      `json:"completed"`
	Total      int      `json:"total"`
	Recipes    []Recipe `json:"recipes,omitempty"`
	FailedURLs []string `json:"failed_urls,omitempty"`
}

// Batch job states.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchPartial    = "partial"
	BatchFailed     = "failed"
)

// BatchJob tracks an asynchronous batch scrape.
type BatchJob struct {
	mu         sync.Mutex
	ID         string
	Status     string
	Total      int
	Completed  int
	Recipes    []Recipe
	FailedURLs []string
	CreatedAt  int64 // unix timestamp
}

// Progress records one finished URL.
func (j *BatchJob) Progress() {
	j.mu.Lock()
	j.Completed++
	j.mu.Unlock()
}

// Finish stores the outcome and derives the final status.
func (j *BatchJob) Finish(recipes []Recipe, failed []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Recipes = recipes
	j.FailedURLs = failed
	j.Completed = j.Total
	switch {
	case len(failed) == j.Total:
		j.Status = BatchFailed
	case len(failed) > 0:
		j.Status = BatchPartial
	default:
		j.Status = BatchCompleted
	}
}

// Snapshot returns a consistent copy for serialisation.
func (j *BatchJob) Snapshot() BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	return BatchStatusResponse{
		ID:         j.ID,
		Status:     j.Status,
		Completed:  j.Completed,
		Total:      j.Total,
		Recipes:    j.Recipes,
		FailedURLs: j.FailedURLs,
	}
}
