// Package scraper composes the site mapper, fetch strategy, extractor,
// markdown converter, and translator into the two-call pipeline:
// MapSite discovers URLs, Scrape turns URLs into assembled pages.
package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rpblab/beyscout/cache"
	"github.com/rpblab/beyscout/config"
	"github.com/rpblab/beyscout/extract"
	"github.com/rpblab/beyscout/fetch"
	"github.com/rpblab/beyscout/markdown"
	"github.com/rpblab/beyscout/models"
	"github.com/rpblab/beyscout/sitemap"
	"github.com/rpblab/beyscout/translate"
)

// Service is the scrape orchestrator. Instances hold configuration and
// long-lived collaborators only; no mutable state is shared between
// concurrent calls.
type Service struct {
	strategy   fetch.Strategy
	mapper     *sitemap.Mapper
	converter  *markdown.Converter
	translator *translate.Translator
	pages      *cache.Cache
	limiter    *rate.Limiter
	cfg        config.ScraperConfig
}

// New builds a Service from config. The heavy strategy launches a
// browser here; a missing browser binary is the one configuration
// failure that propagates to the caller.
func New(cfg *config.Config) (*Service, error) {
	var strategy fetch.Strategy
	if cfg.Scraper.Strategy == config.StrategyLight {
		strategy = fetch.NewStatic(cfg.Browser, cfg.Scraper)
	} else {
		browser, err := fetch.NewBrowser(cfg.Browser, cfg.Scraper)
		if err != nil {
			return nil, err
		}
		strategy = browser
	}

	var limiter *rate.Limiter
	if cfg.Scraper.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Scraper.RequestsPerSecond), 1)
	}

	var pages *cache.Cache
	if cfg.Scraper.CacheMaxEntries > 0 {
		pages = cache.New(cfg.Scraper.CacheMaxEntries, cfg.Scraper.CacheTTL)
	}

	// Assign through a nil check so an absent backend stays a nil
	// interface rather than a typed nil.
	var backend translate.Backend
	if llm := translate.NewLLMBackend(cfg.Translate); llm != nil {
		backend = llm
	}

	return &Service{
		strategy:   strategy,
		mapper:     sitemap.New(cfg.SiteMap, strategy, cfg.Scraper.PageTimeout),
		converter:  markdown.New(cfg.Scraper.ExtractMode),
		translator: translate.New(backend),
		pages:      pages,
		limiter:    limiter,
		cfg:        cfg.Scraper,
	}, nil
}

// Close releases the fetch strategy and stops background goroutines.
func (s *Service) Close() {
	s.strategy.Close()
	if s.pages != nil {
		s.pages.Stop()
	}
}

// MapSite discovers same-host URLs reachable from baseURL. The caller
// filters and slices the result before handing it to Scrape; no
// filtering policy beyond host matching and asset exclusion is imposed
// here.
func (s *Service) MapSite(ctx context.Context, baseURL string) ([]string, error) {
	return s.mapper.Map(ctx, baseURL)
}

// Scrape fetches, extracts, converts, and (conditionally) translates
// each URL. The batch is capped at MaxRequestsPerCrawl and executed
// with the strategy's concurrency. Failed URLs are logged and excluded;
// one failure never aborts the batch, so the result may be shorter than
// the input. No ordering guarantee is made on the result.
func (s *Service) Scrape(ctx context.Context, urls []string, targetLang string) ([]*models.ScrapedPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requested := len(urls)
	if max := s.cfg.MaxRequestsPerCrawl; max > 0 && len(urls) > max {
		slog.Warn("scrape batch truncated", "requested", requested, "cap", max)
		urls = urls[:max]
	}

	results := make([]*models.ScrapedPage, 0, len(urls))
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, s.strategy.MaxConcurrent())

	for _, u := range urls {
		wg.Add(1)
		go func(pageURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			page, err := s.scrapeOne(ctx, pageURL, targetLang)
			if err != nil {
				slog.Warn("page skipped", "url", pageURL, "error", err)
				return
			}

			mu.Lock()
			results = append(results, page)
			mu.Unlock()
		}(u)
	}

	wg.Wait()
	slog.Info("scrape finished", "requested", requested, "succeeded", len(results), "strategy", s.strategy.Name())
	return results, nil
}

// scrapeOne runs the full per-URL pipeline:
// fetch → extract → markdown → translate → assemble.
func (s *Service) scrapeOne(ctx context.Context, pageURL, targetLang string) (*models.ScrapedPage, error) {
	key := cache.Key(pageURL, s.strategy.Name(), targetLang)
	if s.pages != nil {
		if page, hit := s.pages.Get(key); hit {
			slog.Debug("cache hit", "url", pageURL)
			return page, nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	pageTimeout := s.cfg.PageTimeout
	if pageTimeout <= 0 {
		pageTimeout = 30 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	payload, err := s.strategy.Fetch(fetchCtx, pageURL)
	if err != nil {
		return nil, err
	}

	fields, err := extract.Page(payload)
	if err != nil {
		return nil, err
	}

	md, err := s.converter.Convert(payload.HTML, payload.FinalURL)
	if err != nil {
		// A conversion failure still yields a page; markdown stays "".
		slog.Warn("markdown conversion failed", "url", pageURL, "error", err)
		md = ""
	}

	translated := md
	if md != "" {
		translated = s.translator.Translate(ctx, md, fields.Language, targetLang)
	}

	page := &models.ScrapedPage{
		URL:                payload.FinalURL,
		Title:              fields.Title,
		Language:           fields.Language,
		Markdown:           md,
		TranslatedMarkdown: translated,
		Links:              fields.Links,
		Product:            fields.Product,
		Metadata:           fields.Metadata,
	}

	if s.pages != nil {
		s.pages.Set(key, page)
	}
	return page, nil
}
