package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Strategy selects how pages are fetched for an entire Service instance.
const (
	StrategyHeavy = "heavy" // full browser rendering
	StrategyLight = "light" // static HTML parse, no script execution
)

// Config holds all application configuration.
type Config struct {
	Browser   BrowserConfig
	Scraper   ScraperConfig
	SiteMap   SiteMapConfig
	Translate TranslateConfig
	Lineup    LineupConfig
	Store     StoreConfig
	Notify    NotifyConfig
	Log       LogConfig
}

// BrowserConfig controls the Rod browser used by the heavy strategy and
// the site-map fallback crawler.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// BrowserBin overrides the Chrome/Chromium binary path.
	BrowserBin string // default: /usr/bin/google-chrome

	// NoSandbox disables the Chrome sandbox (required when running as root).
	NoSandbox bool // default: true

	// Locale is sent as Accept-Language so the target site serves its
	// primary-language markup.
	Locale string // default: "ja-JP"

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 5

	// Stealth injects anti-automation-detection JS before navigation.
	Stealth bool // default: false
}

// ScraperConfig controls the scrape pipeline.
type ScraperConfig struct {
	// Strategy is "heavy" or "light", fixed per Service instance.
	Strategy string // default: "heavy"

	// MaxRequestsPerCrawl caps pages fetched in one Scrape or MapSite call.
	MaxRequestsPerCrawl int // default: 20

	// PageTimeout bounds a single fetch+render.
	PageTimeout time.Duration // default: 30s

	// LightConcurrency / HeavyConcurrency cap in-flight fetches per strategy.
	LightConcurrency int // default: 10
	HeavyConcurrency int // default: 5

	// RequestsPerSecond throttles outgoing fetches against the target site.
	// Zero disables throttling.
	RequestsPerSecond float64 // default: 4

	// ExtractMode is "raw" (whole body) or "article" (readability).
	ExtractMode string // default: "raw"

	// CacheMaxEntries bounds the in-memory page cache. Zero disables it.
	CacheMaxEntries int // default: 256

	// CacheTTL is how long a cached page stays fresh.
	CacheTTL time.Duration // default: 15m
}

// SiteMapConfig controls URL discovery.
type SiteMapConfig struct {
	// KatanaBin is the external crawler binary.
	KatanaBin string // default: "katana"

	// Depth is the subprocess recursion depth.
	Depth int // default: 3

	// Timeout is the wall-clock bound on the subprocess attempt.
	Timeout time.Duration // default: 30s

	// FallbackBudget caps pages visited by the in-process fallback crawl.
	FallbackBudget int // default: 50
}

// TranslateConfig controls the optional translation backend.
// An empty APIKey is a valid, expected state: translation becomes a no-op.
type TranslateConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "gpt-4o-mini"
	Timeout time.Duration // default: 60s
}

// LineupConfig controls the catalog sync adapter.
type LineupConfig struct {
	// URL is the fixed catalog page.
	URL string // default: the Takara Tomy Beyblade X lineup page

	Timeout time.Duration // default: 15s
}

// StoreConfig controls the sqlite store.
type StoreConfig struct {
	Path string // default: "beyscout.db"
}

// NotifyConfig controls the optional sync-result webhook.
// An empty URL disables notification.
type NotifyConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:   envBoolOr("BEYSCOUT_HEADLESS", true),
			BrowserBin: envOr("BEYSCOUT_BROWSER_BIN", "/usr/bin/google-chrome"),
			NoSandbox:  envBoolOr("BEYSCOUT_NO_SANDBOX", true),
			Locale:     envOr("BEYSCOUT_LOCALE", "ja-JP"),
			MaxPages:   envIntOr("BEYSCOUT_MAX_PAGES", 5),
			Stealth:    envBoolOr("BEYSCOUT_STEALTH", false),
		},
		Scraper: ScraperConfig{
			Strategy:            envOr("BEYSCOUT_STRATEGY", StrategyHeavy),
			MaxRequestsPerCrawl: envIntOr("BEYSCOUT_MAX_REQUESTS", 20),
			PageTimeout:         envDurationOr("BEYSCOUT_PAGE_TIMEOUT", 30*time.Second),
			LightConcurrency:    envIntOr("BEYSCOUT_LIGHT_CONCURRENCY", 10),
			HeavyConcurrency:    envIntOr("BEYSCOUT_HEAVY_CONCURRENCY", 5),
			RequestsPerSecond:   envFloatOr("BEYSCOUT_RATE_RPS", 4),
			ExtractMode:         envOr("BEYSCOUT_EXTRACT_MODE", "raw"),
			CacheMaxEntries:     envIntOr("BEYSCOUT_CACHE_MAX_ENTRIES", 256),
			CacheTTL:            envDurationOr("BEYSCOUT_CACHE_TTL", 15*time.Minute),
		},
		SiteMap: SiteMapConfig{
			KatanaBin:      envOr("BEYSCOUT_KATANA_BIN", "katana"),
			Depth:          envIntOr("BEYSCOUT_MAP_DEPTH", 3),
			Timeout:        envDurationOr("BEYSCOUT_MAP_TIMEOUT", 30*time.Second),
			FallbackBudget: envIntOr("BEYSCOUT_MAP_FALLBACK_BUDGET", 50),
		},
		Translate: TranslateConfig{
			APIKey:  os.Getenv("BEYSCOUT_TRANSLATE_API_KEY"),
			BaseURL: envOr("BEYSCOUT_TRANSLATE_BASE_URL", "https://api.openai.com/v1"),
			Model:   envOr("BEYSCOUT_TRANSLATE_MODEL", "gpt-4o-mini"),
			Timeout: envDurationOr("BEYSCOUT_TRANSLATE_TIMEOUT", 60*time.Second),
		},
		Lineup: LineupConfig{
			URL:     envOr("BEYSCOUT_LINEUP_URL", "https://beyblade.takaratomy.co.jp/beyblade-x/lineup/"),
			Timeout: envDurationOr("BEYSCOUT_LINEUP_TIMEOUT", 15*time.Second),
		},
		Store: StoreConfig{
			Path: envOr("BEYSCOUT_DB", "beyscout.db"),
		},
		Notify: NotifyConfig{
			URL:    os.Getenv("BEYSCOUT_WEBHOOK_URL"),
			Secret: os.Getenv("BEYSCOUT_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("BEYSCOUT_LOG_LEVEL", "info"),
			Format: envOr("BEYSCOUT_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
