package video

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/souschef/config"
	"github.com/use-agent/souschef/engine"
)

const initialDataPage = `<html><head><script>var other = 1;</script>
<script>var ytInitialData = {"contents":[
{"videoRenderer":{"videoId":"abc123","thumbnail":{},"title":{"runs":[{"text":"Perfect Pancakes"}]}}},
{"videoRenderer":{"videoId":"abc123","title":{"runs":[{"text":"Perfect Pancakes"}]}}},
{"videoRenderer":{"videoId":"def456","title":{"runs":[{"text":"Fluffy Pancakes"}]}}},
{"videoRenderer":{"videoId":"ghi789","title":{"runs":[{"text":"Vegan Pancakes"}]}}}
]};</script></head><body></body></html>`

const anchorPage = `<html><body>
<a href="/about">About</a>
<a href="/watch?v=zzz" title="Crepes 101">x</a>
<a href="/watch?v=yyy">y</a>
</body></html>`

func newLookup(t *testing.T, handler http.HandlerFunc) (*Lookup, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.VideoConfig{
		BaseURL:       srv.URL,
		ThumbnailBase: "https://img.youtube.com",
		Timeout:       2 * time.Second,
		Breaker: config.BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 2,
		},
	}
	return New(engine.NewHTTPEngine(2*time.Second), cfg), srv
}

func TestSearch_InitialData(t *testing.T) {
	var gotQuery string
	l, srv := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		_, _ = w.Write([]byte(initialDataPage))
	})

	videos := l.Search(context.Background(), "pancakes", 2)
	require.Len(t, videos, 2)
	assert.Equal(t, "pancakes recipe cooking tutorial", gotQuery)

	assert.Equal(t, "Perfect Pancakes", videos[0].Title)
	assert.Equal(t, srv.URL+"/watch?v=abc123", videos[0].URL)
	assert.Equal(t, "https://img.youtube.com/vi/abc123/maxresdefault.jpg", videos[0].Thumbnail)
	assert.Equal(t, "Fluffy Pancakes", videos[1].Title, "duplicate IDs are skipped")
}

func TestSearch_AnchorFallback(t *testing.T) {
	l, srv := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(anchorPage))
	})

	videos := l.Search(context.Background(), "crepes", 5)
	require.Len(t, videos, 2)
	assert.Equal(t, "Crepes 101", videos[0].Title)
	assert.Equal(t, srv.URL+"/watch?v=zzz", videos[0].URL)
	assert.Empty(t, videos[0].Thumbnail)
	assert.Equal(t, "Recipe Video", videos[1].Title)
}

func TestSearch_FailureIsEmpty(t *testing.T) {
	l, _ := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	videos := l.Search(context.Background(), "soup", 5)
	assert.NotNil(t, videos)
	assert.Empty(t, videos)
	assert.Equal(t, "", l.Single(context.Background(), "soup"))
}

func TestSearch_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	l, _ := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		assert.Empty(t, l.Search(context.Background(), "stew", 1))
	}
	assert.Equal(t, int32(2), calls.Load(), "an open breaker stops upstream calls")
}

func TestSingle(t *testing.T) {
	l, srv := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(initialDataPage))
	})
	assert.Equal(t, srv.URL+"/watch?v=abc123", l.Single(context.Background(), "pancakes"))
}

func TestSearch_EmptyQuery(t *testing.T) {
	l, _ := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	assert.Empty(t, l.Search(context.Background(), "  ", 5))
}
