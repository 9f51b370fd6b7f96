// Package sitemap discovers the set of same-host URLs reachable from a
// seed URL. It prefers an external high-performance crawler subprocess
// (katana) and falls back to an in-process breadth crawl through the
// configured fetch strategy when the subprocess is unavailable or errors.
package sitemap

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rpblab/beyscout/config"
	"github.com/rpblab/beyscout/fetch"
	"github.com/rpblab/beyscout/models"
)

// attempt is the tagged result of one discovery strategy. The fallback
// path is a second attempt, not a catch block: failures are data here.
type attempt struct {
	source string
	urls   []string
	err    error
}

func (a attempt) failed() bool { return a.err != nil }

// runner is one URL-discovery strategy.
type runner interface {
	name() string
	run(ctx context.Context, seed string) ([]string, error)
}

// Mapper discovers site URLs via a primary runner with a fallback.
type Mapper struct {
	primary  runner
	fallback runner
	timeout  time.Duration
}

// New builds a Mapper with the katana subprocess as primary and a
// breadth crawl through the given fetch strategy as fallback, so a
// light-configured service still has a working fallback. A nil strategy
// disables the fallback.
func New(cfg config.SiteMapConfig, strategy fetch.Strategy, pageTimeout time.Duration) *Mapper {
	m := &Mapper{
		primary: &katanaRunner{
			bin:     cfg.KatanaBin,
			depth:   cfg.Depth,
			timeout: cfg.Timeout,
		},
		timeout: cfg.Timeout,
	}
	if strategy != nil {
		m.fallback = &crawlRunner{
			fetcher:     strategy,
			budget:      cfg.FallbackBudget,
			pageTimeout: pageTimeout,
		}
	}
	return m
}

// Map returns the deduplicated set of same-host, absolute, non-asset
// URLs reachable from baseURL. Discovery failures are logged, never
// propagated: when every strategy fails the result is simply empty.
func (m *Mapper) Map(ctx context.Context, baseURL string) ([]string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, models.NewScrapeError(models.ErrCodeConfig, "invalid seed URL", err)
	}

	for _, r := range []runner{m.primary, m.fallback} {
		if r == nil {
			continue
		}
		a := attempt{source: r.name()}
		a.urls, a.err = r.run(ctx, baseURL)
		if a.failed() {
			slog.Warn("site mapping attempt failed", "source", a.source, "seed", baseURL, "error", a.err)
			continue
		}
		urls := filterURLs(a.urls, parsed.Host)
		slog.Info("site mapped", "source", a.source, "seed", baseURL, "urls", len(urls))
		return urls, nil
	}

	slog.Warn("all site mapping attempts failed, returning empty set", "seed", baseURL)
	return []string{}, nil
}

// assetExtensions are static resources that are never content pages.
var assetExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
	".svg": {}, ".ico": {}, ".css": {}, ".js": {}, ".mjs": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
}

// filterURLs keeps http-prefixed URLs on the given host without a
// static-asset extension, deduplicated, preserving first appearance.
func filterURLs(raw []string, host string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := []string{}
	for _, u := range raw {
		u = strings.TrimSpace(u)
		if !strings.HasPrefix(u, "http") {
			continue
		}
		parsed, err := url.Parse(u)
		if err != nil || !strings.EqualFold(parsed.Host, host) {
			continue
		}
		if isAsset(parsed.Path) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func isAsset(p string) bool {
	_, ok := assetExtensions[strings.ToLower(path.Ext(p))]
	return ok
}
