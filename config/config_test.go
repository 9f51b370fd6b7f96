package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, StrategyHeavy, cfg.Scraper.Strategy)
	assert.Equal(t, 20, cfg.Scraper.MaxRequestsPerCrawl)
	assert.Equal(t, 30*time.Second, cfg.Scraper.PageTimeout)
	assert.Equal(t, 10, cfg.Scraper.LightConcurrency)
	assert.Equal(t, 5, cfg.Scraper.HeavyConcurrency)

	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.NoSandbox)
	assert.Equal(t, "ja-JP", cfg.Browser.Locale)

	assert.Equal(t, "katana", cfg.SiteMap.KatanaBin)
	assert.Equal(t, 3, cfg.SiteMap.Depth)
	assert.Equal(t, 50, cfg.SiteMap.FallbackBudget)

	assert.Equal(t, "https://beyblade.takaratomy.co.jp/beyblade-x/lineup/", cfg.Lineup.URL)
	assert.Equal(t, "beyscout.db", cfg.Store.Path)
	assert.Empty(t, cfg.Translate.APIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BEYSCOUT_STRATEGY", StrategyLight)
	t.Setenv("BEYSCOUT_MAX_REQUESTS", "7")
	t.Setenv("BEYSCOUT_PAGE_TIMEOUT", "45s")
	t.Setenv("BEYSCOUT_HEADLESS", "false")
	t.Setenv("BEYSCOUT_RATE_RPS", "2.5")

	cfg := Load()

	assert.Equal(t, StrategyLight, cfg.Scraper.Strategy)
	assert.Equal(t, 7, cfg.Scraper.MaxRequestsPerCrawl)
	assert.Equal(t, 45*time.Second, cfg.Scraper.PageTimeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 2.5, cfg.Scraper.RequestsPerSecond)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BEYSCOUT_MAX_REQUESTS", "not-a-number")
	t.Setenv("BEYSCOUT_PAGE_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 20, cfg.Scraper.MaxRequestsPerCrawl)
	assert.Equal(t, 30*time.Second, cfg.Scraper.PageTimeout)
}
