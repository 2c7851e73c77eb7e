package engine

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/souschef/config"
	"github.com/use-agent/souschef/metrics"
	"github.com/use-agent/souschef/models"
	"github.com/ysmood/gson"
)

// RodEngine renders pages in headless Chrome. The browser is launched by
// Start or, failing that, on the next fetch.
type RodEngine struct {
	cfg     config.BrowserConfig
	timeout time.Duration

	mu      sync.Mutex
	browser *rod.Browser
	pool    rod.Pool[rod.Page]
	health  map[*rod.Page]*pageHealth
}

// NewRodEngine creates a RodEngine whose fetches default to timeout.
func NewRodEngine(cfg config.BrowserConfig, timeout time.Duration) *RodEngine {
	return &RodEngine{
		cfg:     cfg,
		timeout: timeout,
		health:  make(map[*rod.Page]*pageHealth),
	}
}

func (e *RodEngine) Name() string { return "rod" }

// Ready reports whether the browser has been launched.
func (e *RodEngine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.browser != nil
}

// Start launches the browser now instead of on the first fetch.
func (e *RodEngine) Start() error {
	return e.launch()
}

// launch starts and connects the browser if it is not running yet.
func (e *RodEngine) launch() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser != nil {
		return nil
	}

	l := launcher.New().
		Headless(e.cfg.Headless).
		NoSandbox(e.cfg.NoSandbox)
	if e.cfg.Bin != "" {
		l = l.Bin(e.cfg.Bin)
	}
	if e.cfg.Proxy != "" {
		l = l.Proxy(e.cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	maxPages := e.cfg.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	e.browser = browser
	e.pool = rod.NewPagePool(maxPages)
	slog.Info("browser launched", "controlURL", controlURL, "maxPages", maxPages)
	return nil
}

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	start := time.Now()
	result, err := e.fetch(ctx, req)
	metrics.FetchDuration.WithLabelValues(e.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchTotal.WithLabelValues(e.Name(), "error").Inc()
		return nil, err
	}
	metrics.FetchTotal.WithLabelValues(e.Name(), "ok").Inc()
	return result, nil
}

// fetch renders one page.
//
// Stealth JS and the hijack router only affect navigations that start
// after they are installed, so both happen before Navigate. The deferred
// about:blank uses the unbound page so cleanup works after ctx expires.
func (e *RodEngine) fetch(ctx context.Context, req *FetchRequest) (result *FetchResult, err error) {
	if err := e.launch(); err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	page, err := e.pool.Get(func() (*rod.Page, error) {
		return e.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		e.pool.Put(nil)
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}
	defer func() { e.release(page, err == nil) }()

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	headers := make(map[string]string, len(DefaultHeaders)+len(req.Headers))
	for k, v := range DefaultHeaders {
		if k != "User-Agent" {
			headers[k] = v
		}
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)

	router := setupHijack(page, e.cfg.BlockedResources)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)
	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to "+req.URL+" failed")
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		if ctx.Err() != nil {
			return nil, categorizeError(ctx.Err(), "page "+req.URL+" did not settle")
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	// Zero means the browser could not report a status.
	var status int
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		status = res.Value.Int()
	}
	if status != 0 && (status < 200 || status > 299) {
		return nil, statusError(status, req.URL)
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}
	if status == 0 {
		status = 200
	}

	return &FetchResult{
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: status,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// release returns a page to the pool, or closes it when its health says
// it should be retired. A retired page leaves an empty slot behind.
func (e *RodEngine) release(page *rod.Page, success bool) {
	if navErr := page.Navigate("about:blank"); navErr != nil {
		slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		success = false
	}

	e.mu.Lock()
	h, ok := e.health[page]
	if !ok {
		h = &pageHealth{created: time.Now()}
		e.health[page] = h
	}
	h.record(success)
	retire := h.shouldRetire(time.Now())
	if retire {
		delete(e.health, page)
	}
	e.mu.Unlock()

	if retire {
		slog.Debug("retiring browser page", "errScore", h.errScore, "uses", h.uses)
		_ = page.Close()
		e.pool.Put(nil)
		return
	}
	e.pool.Put(page)
}

// Close drains the page pool and kills the browser process.
func (e *RodEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser == nil {
		return
	}
	e.pool.Cleanup(func(p *rod.Page) { _ = p.Close() })
	if err := e.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	e.browser = nil
	slog.Info("browser shut down")
}

// pageHealth scores a pooled page. Successes lower the score, failures
// raise it.
type pageHealth struct {
	errScore float64
	uses     int
	created  time.Time
}

func (h *pageHealth) record(success bool) {
	h.uses++
	if success {
		h.errScore -= 0.5
		if h.errScore < 0 {
			h.errScore = 0
		}
		return
	}
	h.errScore++
}

func (h *pageHealth) shouldRetire(now time.Time) bool {
	return h.errScore >= 3 || h.uses >= 50 || now.Sub(h.created) >= 50*time.Minute
}

// resourceTypes maps config names to protocol resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// adDomains are tracking and ad hosts recipe sites load on every page.
var adDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"amazon-adsystem.com":   {},
	"adnxs.com":             {},
	"criteo.com":            {},
	"outbrain.com":          {},
	"taboola.com":           {},
	"pubmatic.com":          {},
	"rubiconproject.com":    {},
	"scorecardresearch.com": {},
	"hotjar.com":            {},
	"facebook.net":          {},
	"chartbeat.com":         {},
	"moatads.com":           {},
	"consensu.org":          {},
}

// isAdDomain reports whether host or any parent domain is blocklisted.
func isAdDomain(host string) bool {
	host = strings.ToLower(host)
	for {
		if _, ok := adDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
}

// setupHijack installs a request interceptor that fails requests for the
// blocked resource types and ad domains. The caller must Stop the router.
func setupHijack(page *rod.Page, blockedTypes []string) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := resourceTypes[name]; ok {
			blocked[rt] = struct{}{}
		}
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if _, ok := blocked[h.Request.Type()]; ok {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if u, err := url.Parse(h.Request.URL().String()); err == nil && isAdDomain(u.Hostname()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()
	return router
}

func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
