package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/souschef/models"
)

func chatServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Len(t, req.Messages, 2)

		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefine(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"choices":[{"message":{"content":"\"quick vegetarian  pasta\"\n"}}]}`)
	r := NewRefiner(NewClient(srv.Client(), "test-key", "test-model", srv.URL+"/"), time.Second)

	assert.Equal(t, "quick vegetarian pasta", r.Refine(context.Background(), "something fast with pasta, no meat please"))
}

func TestRefine_FallsBackOnError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)
	r := NewRefiner(NewClient(srv.Client(), "test-key", "test-model", srv.URL), time.Second)

	assert.Equal(t, "tacos", r.Refine(context.Background(), "tacos"))
}

func TestRefine_Disabled(t *testing.T) {
	var r *Refiner
	assert.False(t, r.Enabled())
	assert.Equal(t, "soup", r.Refine(context.Background(), "soup"))
	assert.Equal(t, "soup", NewRefiner(nil, 0).Refine(context.Background(), "soup"))
}

func TestComplete_ErrorCodes(t *testing.T) {
	for status, code := range map[int]string{
		http.StatusUnauthorized:        models.ErrCodeLLMAuthFailure,
		http.StatusTooManyRequests:     models.ErrCodeLLMRateLimited,
		http.StatusInternalServerError: models.ErrCodeLLMFailure,
	} {
		srv := chatServer(t, status, `{"error":{"message":"nope"}}`)
		c := NewClient(srv.Client(), "test-key", "test-model", srv.URL)

		_, err := c.Complete(context.Background(), "s", "u", 0)
		var se *models.ScrapeError
		require.True(t, errors.As(err, &se), "status %d", status)
		assert.Equal(t, code, se.Code, "status %d", status)
	}
}
