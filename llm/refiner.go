package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const refinePrompt = `You turn recipe search requests into short search phrases.
Extract the most relevant keywords or a refined phrase: ingredients, cuisines, dish names or cooking styles.
If the request is already concise, return it unchanged.
Reply with the refined query only, without quotes, filler or explanation.`

// maxRefinedLen bounds the refined query to what the search endpoint accepts.
const maxRefinedLen = 100

// Refiner rewrites user queries into search phrases. A nil Refiner, or one
// without a client, returns queries unchanged.
type Refiner struct {
	client  *Client
	timeout time.Duration
}

// NewRefiner creates a Refiner. client may be nil to disable refinement.
func NewRefiner(client *Client, timeout time.Duration) *Refiner {
	return &Refiner{client: client, timeout: timeout}
}

// Enabled reports whether queries are sent to the model.
func (r *Refiner) Enabled() bool {
	return r != nil && r.client != nil
}

// Refine returns the refined query, or query itself on any failure.
func (r *Refiner) Refine(ctx context.Context, query string) string {
	if !r.Enabled() {
		return query
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := r.client.Complete(ctx, refinePrompt, query, 32)
	if err != nil {
		slog.Warn("query refinement failed, using original query", "error", err)
		return query
	}

	refined := strings.Join(strings.Fields(strings.Trim(out, "\"'` \n")), " ")
	if refined == "" || len(refined) > maxRefinedLen {
		return query
	}
	if refined != query {
		slog.Info("query refined", "original", query, "refined", refined)
	}
	return refined
}
