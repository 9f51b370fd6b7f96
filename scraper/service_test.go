package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpblab/beyscout/cache"
	"github.com/rpblab/beyscout/config"
	"github.com/rpblab/beyscout/fetch"
	"github.com/rpblab/beyscout/markdown"
	"github.com/rpblab/beyscout/models"
	"github.com/rpblab/beyscout/translate"
)

// fakeStrategy serves canned payloads and records fetch counts.
type fakeStrategy struct {
	mu      sync.Mutex
	pages   map[string]string
	fetches int
}

func (f *fakeStrategy) Name() string       { return "fake" }
func (f *fakeStrategy) MaxConcurrent() int { return 4 }
func (f *fakeStrategy) Close()             {}

func (f *fakeStrategy) Fetch(_ context.Context, url string) (*fetch.Payload, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()

	html, ok := f.pages[url]
	if !ok {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "unreachable", nil)
	}
	return &fetch.Payload{URL: url, FinalURL: url, HTML: html, Method: "fake"}, nil
}

func newTestService(strategy fetch.Strategy, backend translate.Backend) *Service {
	return &Service{
		strategy:   strategy,
		converter:  markdown.New(markdown.ModeRaw),
		translator: translate.New(backend),
		cfg: config.ScraperConfig{
			MaxRequestsPerCrawl: 20,
			PageTimeout:         5 * time.Second,
		},
	}
}

const samplePage = `<html lang="ja"><head><title>ニュース | サイト</title></head>
<body><h1>ニュース</h1><p>ドランソードの新情報が公開されました。続報をお待ちください。</p></body></html>`

func TestScrape_EmptyInput(t *testing.T) {
	svc := newTestService(&fakeStrategy{}, nil)

	pages, err := svc.Scrape(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestScrape_AssemblesPage(t *testing.T) {
	strategy := &fakeStrategy{pages: map[string]string{
		"https://example.com/news": samplePage,
	}}
	svc := newTestService(strategy, nil)

	pages, err := svc.Scrape(context.Background(), []string{"https://example.com/news"}, "")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	p := pages[0]
	assert.Equal(t, "https://example.com/news", p.URL)
	assert.Equal(t, "ニュース | サイト", p.Title)
	assert.Equal(t, "ja", p.Language)
	assert.Contains(t, p.Markdown, "# ニュース")
	// No translation requested, so both fields carry the same text.
	assert.Equal(t, p.Markdown, p.TranslatedMarkdown)
}

func TestScrape_FailedURLSkipped(t *testing.T) {
	strategy := &fakeStrategy{pages: map[string]string{
		"https://example.com/ok": samplePage,
	}}
	svc := newTestService(strategy, nil)

	pages, err := svc.Scrape(context.Background(),
		[]string{"https://example.com/ok", "https://example.com/dead"}, "")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "https://example.com/ok", pages[0].URL)
}

func TestScrape_AllFailYieldsEmptyNotError(t *testing.T) {
	svc := newTestService(&fakeStrategy{}, nil)

	pages, err := svc.Scrape(context.Background(),
		[]string{"https://example.com/a", "https://example.com/b"}, "")
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestScrape_BatchCapped(t *testing.T) {
	strategy := &fakeStrategy{pages: map[string]string{}}
	svc := newTestService(strategy, nil)
	svc.cfg.MaxRequestsPerCrawl = 3

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/p%d", i)
	}

	_, err := svc.Scrape(context.Background(), urls, "")
	require.NoError(t, err)
	assert.Equal(t, 3, strategy.fetches)
}

func TestScrape_CancelledContext(t *testing.T) {
	svc := newTestService(&fakeStrategy{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Scrape(ctx, []string{"https://example.com/a"}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

type echoBackend struct{ calls int }

func (e *echoBackend) Translate(_ context.Context, text, targetLang string) (string, error) {
	e.calls++
	return "[" + targetLang + "] " + text, nil
}

func TestScrape_Translation(t *testing.T) {
	strategy := &fakeStrategy{pages: map[string]string{
		"https://example.com/news": samplePage,
	}}
	backend := &echoBackend{}
	svc := newTestService(strategy, backend)

	pages, err := svc.Scrape(context.Background(), []string{"https://example.com/news"}, "en")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	assert.True(t, strings.HasPrefix(pages[0].TranslatedMarkdown, "[en] "))
	assert.Equal(t, 1, backend.calls)
}

func TestScrape_SameLanguageNotTranslated(t *testing.T) {
	strategy := &fakeStrategy{pages: map[string]string{
		"https://example.com/news": samplePage,
	}}
	backend := &echoBackend{}
	svc := newTestService(strategy, backend)

	// The page declares lang="ja"; requesting ja-JP is a no-op.
	pages, err := svc.Scrape(context.Background(), []string{"https://example.com/news"}, "ja-JP")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, pages[0].Markdown, pages[0].TranslatedMarkdown)
	assert.Zero(t, backend.calls)
}

func TestScrape_CacheHitSkipsFetch(t *testing.T) {
	strategy := &fakeStrategy{pages: map[string]string{
		"https://example.com/news": samplePage,
	}}
	svc := newTestService(strategy, nil)
	svc.pages = cache.New(8, time.Minute)
	defer svc.pages.Stop()

	url := []string{"https://example.com/news"}
	_, err := svc.Scrape(context.Background(), url, "")
	require.NoError(t, err)
	_, err = svc.Scrape(context.Background(), url, "")
	require.NoError(t, err)

	assert.Equal(t, 1, strategy.fetches)
}
