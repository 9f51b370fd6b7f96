package sitemap

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rpblab/beyscout/fetch"
	"github.com/rpblab/beyscout/models"
)

// crawlRunner is the in-process fallback: a breadth-first crawl through
// the configured fetch strategy, visiting same-host links up to a fixed
// page budget and recording every URL that actually loads.
type crawlRunner struct {
	fetcher     fetch.Strategy
	budget      int
	pageTimeout time.Duration
}

func (c *crawlRunner) name() string { return "browser-crawl" }

func (c *crawlRunner) run(ctx context.Context, seed string) ([]string, error) {
	base, err := url.Parse(seed)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeConfig, "invalid seed URL", err)
	}

	budget := c.budget
	if budget <= 0 {
		budget = 50
	}
	pageTimeout := c.pageTimeout
	if pageTimeout <= 0 {
		pageTimeout = 30 * time.Second
	}

	visited := make(map[string]struct{})
	discovered := []string{}
	queue := []string{seed}

	for len(queue) > 0 && len(visited) < budget {
		if ctx.Err() != nil {
			break
		}

		current := queue[0]
		queue = queue[1:]
		if _, done := visited[current]; done {
			continue
		}
		visited[current] = struct{}{}

		pageCtx, cancel := context.WithTimeout(ctx, pageTimeout)
		payload, err := c.fetcher.Fetch(pageCtx, current)
		cancel()
		if err != nil {
			slog.Debug("fallback crawl: page skipped", "url", current, "error", err)
			continue
		}
		// Only pages that actually loaded count as discovered.
		discovered = append(discovered, current)

		for _, link := range pageLinks(payload.HTML, base) {
			if _, done := visited[link]; !done {
				queue = append(queue, link)
			}
		}
	}

	if len(discovered) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "fallback crawl reached no pages", nil)
	}
	return discovered, nil
}

// pageLinks extracts same-host absolute links from the page markup.
func pageLinks(rawHTML string, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	links := []string{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !strings.EqualFold(resolved.Host, base.Host) {
			return
		}
		resolved.Fragment = ""
		links = append(links, resolved.String())
	})
	return links
}
