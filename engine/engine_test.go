package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/souschef/cache"
	"github.com/use-agent/souschef/models"
)

func TestHTTPEngine_Fetch(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title> Best Lasagna </title></head><body>ok</body></html>`))
	}))
	defer srv.Close()

	e := NewHTTPEngine(5 * time.Second)
	res, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, "Best Lasagna", res.Title)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "http", res.EngineName)
	assert.Contains(t, res.HTML, "<body>ok</body>")
	assert.Contains(t, gotUA, "Chrome/120")
	assert.Equal(t, "en-US,en;q=0.5", gotLang)
}

func TestHTTPEngine_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPEngine(5*time.Second).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	require.Error(t, err)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeUpstream, se.Code)
}

func TestHTTPEngine_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewHTTPEngine(5*time.Second).Fetch(context.Background(),
		&FetchRequest{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeTimeout, se.Code)
}

// fakeEngine returns a canned result after an optional delay.
type fakeEngine struct {
	name  string
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &FetchResult{HTML: "<html></html>", StatusCode: 200, FinalURL: req.URL, EngineName: f.name}, nil
}

func newMemory(t *testing.T) *HostMemory {
	t.Helper()
	m := cache.NewManager(cache.NewMemory(0, 0), time.Hour)
	t.Cleanup(func() { _ = m.Close() })
	return NewHostMemory(m, time.Hour)
}

func TestDispatcher_FastEngineWins(t *testing.T) {
	fast := &fakeEngine{name: "http"}
	slow := &fakeEngine{name: "rod", delay: time.Second}
	mem := newMemory(t)
	d := NewDispatcher([]Engine{fast, slow}, []time.Duration{0, 200 * time.Millisecond}, mem)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://www.allrecipes.com/recipe/1/"})
	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
	assert.Equal(t, int32(0), slow.calls.Load(), "the escalated engine never starts")
	assert.Equal(t, "http", mem.Get(context.Background(), "www.allrecipes.com"))
}

func TestDispatcher_EscalatesOnFailure(t *testing.T) {
	broken := &fakeEngine{name: "http", err: errors.New("connection reset")}
	browser := &fakeEngine{name: "rod"}
	d := NewDispatcher([]Engine{broken, browser}, []time.Duration{0, 10 * time.Millisecond}, newMemory(t))

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com/recipe/2/"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
}

func TestDispatcher_RememberedEngineFirst(t *testing.T) {
	ctx := context.Background()
	httpEng := &fakeEngine{name: "http"}
	rodEng := &fakeEngine{name: "rod"}
	mem := newMemory(t)
	mem.Set(ctx, "example.com", "rod")

	d := NewDispatcher([]Engine{httpEng, rodEng}, []time.Duration{0, time.Second}, mem)
	res, err := d.Fetch(ctx, &FetchRequest{URL: "https://example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
	assert.Equal(t, int32(0), httpEng.calls.Load())
}

func TestDispatcher_AllFailPrefersUpstreamError(t *testing.T) {
	upstream := &fakeEngine{name: "http", err: statusError(503, "https://example.com")}
	network := &fakeEngine{name: "rod", delay: 20 * time.Millisecond, err: errors.New("boom")}
	d := NewDispatcher([]Engine{upstream, network}, nil, nil)

	_, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.True(t, isUpstream(err))
}

func TestIsAdDomain(t *testing.T) {
	assert.True(t, isAdDomain("pagead2.googlesyndication.com"))
	assert.True(t, isAdDomain("DoubleClick.net"))
	assert.False(t, isAdDomain("www.allrecipes.com"))
	assert.False(t, isAdDomain("net"))
}

func TestPageHealth(t *testing.T) {
	now := time.Now()
	h := &pageHealth{created: now}
	for i := 0; i < 3; i++ {
		assert.False(t, h.shouldRetire(now))
		h.record(false)
	}
	assert.True(t, h.shouldRetire(now), "three failures retire a page")

	h = &pageHealth{created: now}
	h.record(false)
	h.record(true)
	h.record(true)
	assert.Zero(t, h.errScore)
	assert.True(t, h.shouldRetire(now.Add(time.Hour)), "old pages are retired")
}
