package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/souschef/api"
	"github.com/use-agent/souschef/api/handler"
	"github.com/use-agent/souschef/cache"
	"github.com/use-agent/souschef/config"
	"github.com/use-agent/souschef/engine"
	"github.com/use-agent/souschef/llm"
	"github.com/use-agent/souschef/ratelimit"
	"github.com/use-agent/souschef/scraper"
	"github.com/use-agent/souschef/video"
	"github.com/use-agent/souschef/webhook"
)

// hostMemoryTTL is how long a host's winning engine is remembered.
const hostMemoryTTL = 24 * time.Hour

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("souschef starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"base_url", cfg.Scraper.BaseURL,
		"browser", cfg.Browser.Enabled,
	)

	// ── 3. Initialise cache ─────────────────────────────────────────
	cc, err := cache.Open(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialise cache", "error", err)
		os.Exit(1)
	}
	defer cc.Close()

	gcCtx, stopGC := context.WithCancel(context.Background())
	defer stopGC()
	if b, ok := cc.Backend().(*cache.Badger); ok {
		go runBadgerGC(gcCtx, b)
	}

	// ── 4. Initialise fetch engines ─────────────────────────────────
	engines := []engine.Engine{engine.NewHTTPEngine(cfg.Scraper.Timeout)}
	delays := []time.Duration{0}

	var browser *engine.RodEngine
	if cfg.Browser.Enabled {
		browser = engine.NewRodEngine(cfg.Browser, cfg.Scraper.Timeout)
		if err := browser.Start(); err != nil {
			// Fetches retry the launch; until then the HTTP engine serves alone.
			slog.Warn("browser launch failed", "error", err)
		}
		defer browser.Close()
		engines = append(engines, browser)
		delays = append(delays, cfg.Browser.EscalationDelay)
	}
	fetcher := engine.NewDispatcher(engines, delays, engine.NewHostMemory(cc, hostMemoryTTL))
	slog.Info("fetch engines ready", "engines", len(engines), "delays", delays)

	// ── 5. Initialise pipeline services ─────────────────────────────
	videos := video.New(engine.NewHTTPEngine(cfg.Video.Timeout), cfg.Video)
	sc := scraper.New(fetcher, nil, videos, cfg.Scraper)

	var refiner *llm.Refiner
	if cfg.LLM.APIKey != "" {
		client := llm.NewClient(nil, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
		refiner = llm.NewRefiner(client, cfg.LLM.Timeout)
		slog.Info("query refinement enabled", "model", cfg.LLM.Model)
	}

	deps := &handler.Deps{
		Scraper:  sc,
		Videos:   videos,
		Cache:    cc,
		Refiner:  refiner,
		Webhooks: webhook.New(),
		Config:   cfg,
		Started:  time.Now(),
	}
	if browser != nil {
		deps.Browser = browser
	}

	// ── 6. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(deps, ratelimit.New(cc))

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Searches pace their page fetches, so give them longer than a plain request.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Deferred closes stop the browser and flush the cache.
	slog.Info("souschef stopped")
}

// runBadgerGC reclaims value-log space every ten minutes until ctx ends.
func runBadgerGC(ctx context.Context, b *cache.Badger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.RunGC()
		}
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
