package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/rpblab/beyscout/config"
	"github.com/rpblab/beyscout/models"
)

// Browser is the heavy strategy: a real rendering engine per worker
// slot. Appropriate when the target page needs script execution to
// render content or navigation.
//
// It manages one browser process with a reusable page pool and is safe
// for concurrent use.
type Browser struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	cfg         config.BrowserConfig
	concurrency int
}

// NewBrowser launches the headless browser and initialises the page pool.
func NewBrowser(cfg config.BrowserConfig, scfg config.ScraperConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	// Flags required in restricted execution environments plus the
	// locale override so the target site serves Japanese markup.
	l.Set(flags.Flag("disable-setuid-sandbox"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("lang"), cfg.Locale)
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-default-apps"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowser, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowser, "failed to connect to browser", err)
	}

	concurrency := scfg.HeavyConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	if cfg.MaxPages > 0 && cfg.MaxPages < concurrency {
		concurrency = cfg.MaxPages
	}

	return &Browser{
		browser:     browser,
		pagePool:    rod.NewPagePool(concurrency),
		cfg:         cfg,
		concurrency: concurrency,
	}, nil
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) MaxConcurrent() int { return b.concurrency }

// Close drains the page pool and kills the browser process.
func (b *Browser) Close() {
	b.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	b.browser.MustClose()
	slog.Info("browser shut down")
}

// Fetch renders one page and returns its DOM markup. The context bounds
// the whole operation; on expiry the page is returned to the pool and
// the URL is reported failed, never retried here.
func (b *Browser) Fetch(ctx context.Context, url string) (*Payload, error) {
	page, err := b.pagePool.Get(func() (*rod.Page, error) {
		return b.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowser, "failed to acquire page from pool", err)
	}

	// Cleanup uses the original page reference (no request context) so
	// the pool return succeeds even after the context has expired.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		b.pagePool.Put(page)
	}()

	// Stealth JS and resource blocking only take effect for navigations
	// that happen after they are installed.
	if b.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without", "error", evalErr)
		}
	}

	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: proto.NetworkHeaders{
			"Accept-Language": gson.New(b.cfg.Locale),
		},
	}.Call(page)

	router := blockHeavyResources(page)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if navErr := p.Navigate(url); navErr != nil {
		return nil, categorize(navErr, "navigation failed")
	}

	// Base content marker: the document body. Pages that never produce
	// one within the deadline are skipped.
	if _, elErr := p.Element("body"); elErr != nil {
		return nil, categorize(elErr, "page produced no body")
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("DOM did not stabilise, extracting current state", "url", url, "error", stableErr)
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorize(htmlErr, "failed to extract page HTML")
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = url
	}

	return &Payload{
		URL:      url,
		FinalURL: finalURL,
		Title:    title,
		HTML:     rawHTML,
		Method:   b.Name(),
	}, nil
}

// heavyBlockedTypes lists resource types the renderer never needs for
// content extraction.
var heavyBlockedTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeImage:      {},
	proto.NetworkResourceTypeStylesheet: {},
	proto.NetworkResourceTypeFont:       {},
	proto.NetworkResourceTypeMedia:      {},
}

// blockHeavyResources installs a request interceptor dropping image,
// stylesheet, font, and media loads. Returns the running router so the
// caller can defer router.Stop().
func blockHeavyResources(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, blocked := heavyBlockedTypes[ctx.Request.Type()]; blocked {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks; it exits when router.Stop() is called.
	go router.Run()

	return router
}

// evalStringOrEmpty evaluates a JS expression and returns the string
// result, swallowing errors (used for optional fields only).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorize wraps raw errors into typed ScrapeErrors.
func categorize(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "fetch canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
