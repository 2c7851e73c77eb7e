package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Video     VideoConfig     `mapstructure:"video"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `mapstructure:"host"` // default: "0.0.0.0"
	Port int    `mapstructure:"port"` // default: 8080
	Mode string `mapstructure:"mode"` // "debug", "release", "test"; default: "release"
}

// ScraperConfig controls recipe search and page scraping.
type ScraperConfig struct {
	// BaseURL is the recipe site searched and used to resolve relative links.
	BaseURL string `mapstructure:"base_url"` // default: "https://www.allrecipes.com"

	// Delay is the spacing between consecutive detail-page launches.
	Delay time.Duration `mapstructure:"delay"` // default: 500ms

	// Timeout is the per-fetch deadline.
	Timeout time.Duration `mapstructure:"timeout"` // default: 15s

	// MaxConcurrent caps in-flight detail fetches of a single search.
	MaxConcurrent int `mapstructure:"max_concurrent"` // default: 5

	// MaxBatchURLs is the largest URL list accepted by the synchronous batch endpoint.
	MaxBatchURLs int `mapstructure:"max_batch_urls"` // default: 20

	// CollapseDuplicates drops near-identical recipes from search results.
	CollapseDuplicates bool `mapstructure:"collapse_duplicates"` // default: true
}

// BrowserConfig controls the optional headless browser engine.
type BrowserConfig struct {
	// Enabled adds the browser engine to the fetch race.
	Enabled bool `mapstructure:"enabled"` // default: false

	Headless  bool   `mapstructure:"headless"`   // default: true
	NoSandbox bool   `mapstructure:"no_sandbox"` // needed in Docker
	Bin       string `mapstructure:"bin"`        // overrides the Chromium binary path
	Proxy     string `mapstructure:"proxy"`

	// MaxPages is the page pool capacity.
	MaxPages int `mapstructure:"max_pages"` // default: 5

	// EscalationDelay is how long the race waits for the HTTP engine before
	// starting the browser.
	EscalationDelay time.Duration `mapstructure:"escalation_delay"` // default: 3s

	// BlockedResources lists resource types the browser never loads.
	BlockedResources []string `mapstructure:"blocked_resources"`
}

// VideoConfig controls tutorial video lookup.
type VideoConfig struct {
	BaseURL       string        `mapstructure:"base_url"`       // default: "https://www.youtube.com"
	ThumbnailBase string        `mapstructure:"thumbnail_base"` // default: "https://img.youtube.com"
	Timeout       time.Duration `mapstructure:"timeout"`        // default: 10s
	SearchResults int           `mapstructure:"search_results"` // videos attached to a search response; default: 5
	Breaker       BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`      // probes allowed while half-open
	Interval         time.Duration `mapstructure:"interval"`          // closed-state count reset period
	Timeout          time.Duration `mapstructure:"timeout"`           // open-state duration
	FailureThreshold uint32        `mapstructure:"failure_threshold"` // consecutive failures that trip the breaker
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication. With no keys configured the
	// middleware allows every request.
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

// RateLimitConfig controls the fixed-window limiter.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`  // default: true
	Requests int           `mapstructure:"requests"` // per window; default: 60
	Window   time.Duration `mapstructure:"window"`   // default: 1m
}

// CacheConfig controls the cache backend.
type CacheConfig struct {
	// Backend is "memory" or "badger".
	Backend string `mapstructure:"backend"`

	// Path is the badger data directory.
	Path string `mapstructure:"path"`

	DefaultTTL    time.Duration `mapstructure:"default_ttl"`    // default: 1h
	MaxEntries    int           `mapstructure:"max_entries"`    // memory backend only
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // memory backend only
}

// LLMConfig controls optional search query refinement.
type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // default: "info"
	Format string `mapstructure:"format"` // "json" or "text"; default: "json"
}

// Load reads configuration from an optional souschef.yaml, then
// SOUSCHEF_* environment variables, on top of the defaults.
// SOUSCHEF_CONFIG points at an explicit config file.
func Load() (*Config, error) {
	v := viper.New()

	if path := os.Getenv("SOUSCHEF_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("souschef")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/souschef/")
	}

	v.SetEnvPrefix("SOUSCHEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("scraper.base_url", "https://www.allrecipes.com")
	v.SetDefault("scraper.delay", 500*time.Millisecond)
	v.SetDefault("scraper.timeout", 15*time.Second)
	v.SetDefault("scraper.max_concurrent", 5)
	v.SetDefault("scraper.max_batch_urls", 20)
	v.SetDefault("scraper.collapse_duplicates", true)

	v.SetDefault("browser.enabled", false)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.max_pages", 5)
	v.SetDefault("browser.escalation_delay", 3*time.Second)
	v.SetDefault("browser.blocked_resources", []string{"Image", "Stylesheet", "Font", "Media"})

	v.SetDefault("video.base_url", "https://www.youtube.com")
	v.SetDefault("video.thumbnail_base", "https://img.youtube.com")
	v.SetDefault("video.timeout", 10*time.Second)
	v.SetDefault("video.search_results", 5)
	v.SetDefault("video.breaker.max_requests", 1)
	v.SetDefault("video.breaker.interval", time.Minute)
	v.SetDefault("video.breaker.timeout", 30*time.Second)
	v.SetDefault("video.breaker.failure_threshold", 5)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.api_keys", []string{})

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests", 60)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.path", "./data/cache")
	v.SetDefault("cache.default_ttl", time.Hour)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.sweep_interval", 5*time.Minute)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func validate(cfg *Config) error {
	switch cfg.Cache.Backend {
	case "memory":
	case "badger":
		if cfg.Cache.Path == "" {
			return fmt.Errorf("cache path is required when cache backend is 'badger'")
		}
	default:
		return fmt.Errorf("cache backend must be 'memory' or 'badger', got: %s", cfg.Cache.Backend)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", cfg.Server.Port)
	}
	if cfg.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper base_url is required")
	}
	if cfg.Scraper.Delay < 0 {
		return fmt.Errorf("scraper delay must not be negative")
	}
	if cfg.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper timeout must be positive")
	}
	if cfg.Scraper.MaxConcurrent < 1 {
		return fmt.Errorf("scraper max_concurrent must be at least 1")
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.Requests < 1 || cfg.RateLimit.Window <= 0) {
		return fmt.Errorf("ratelimit requires requests >= 1 and a positive window")
	}
	if cfg.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cache default_ttl must not be negative")
	}
	return nil
}
