package sitemap

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpblab/beyscout/fetch"
)

type fakeRunner struct {
	urls  []string
	err   error
	calls int
}

func (f *fakeRunner) name() string { return "fake" }

func (f *fakeRunner) run(_ context.Context, _ string) ([]string, error) {
	f.calls++
	return f.urls, f.err
}

func TestMap_PrimarySucceeds(t *testing.T) {
	primary := &fakeRunner{urls: []string{
		"https://example.com/a",
		"https://example.com/b",
	}}
	fallback := &fakeRunner{urls: []string{"https://example.com/unused"}}
	m := &Mapper{primary: primary, fallback: fallback}

	urls, err := m.Map(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
	assert.Zero(t, fallback.calls)
}

func TestMap_FallbackOnPrimaryFailure(t *testing.T) {
	primary := &fakeRunner{err: errors.New("katana missing")}
	fallback := &fakeRunner{urls: []string{"https://example.com/a"}}
	m := &Mapper{primary: primary, fallback: fallback}

	urls, err := m.Map(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a"}, urls)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestMap_AllRunnersFailYieldsEmptySet(t *testing.T) {
	m := &Mapper{
		primary:  &fakeRunner{err: errors.New("down")},
		fallback: &fakeRunner{err: errors.New("also down")},
	}

	urls, err := m.Map(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}

func TestMap_NilFallbackSkipped(t *testing.T) {
	m := &Mapper{primary: &fakeRunner{err: errors.New("down")}}

	urls, err := m.Map(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestMap_InvalidSeed(t *testing.T) {
	m := &Mapper{primary: &fakeRunner{}}

	_, err := m.Map(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestFilterURLs(t *testing.T) {
	raw := []string{
		"https://example.com/page",
		"https://example.com/page",          // duplicate
		"https://EXAMPLE.com/other",         // host compare is case-insensitive
		"https://elsewhere.com/page",        // different host
		"https://example.com/logo.png",      // asset
		"https://example.com/style.css",     // asset
		"https://example.com/font.woff2",    // asset
		"/relative/path",                    // not absolute
		"  https://example.com/trimmed  ",   // surrounding whitespace
		"javascript:void(0)",                // not http
	}

	got := filterURLs(raw, "example.com")
	assert.Equal(t, []string{
		"https://example.com/page",
		"https://EXAMPLE.com/other",
		"https://example.com/trimmed",
	}, got)
}

func TestParseLines(t *testing.T) {
	output := "https://example.com/a\n[WRN] banner noise\n\nhttps://example.com/b\n"
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, parseLines(output))
}

// fakeFetcher serves canned HTML per URL for the fallback crawl.
type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Name() string       { return "fake" }
func (f *fakeFetcher) MaxConcurrent() int { return 1 }
func (f *fakeFetcher) Close()             {}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Payload, error) {
	html, ok := f.pages[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return &fetch.Payload{URL: url, FinalURL: url, HTML: html, Method: "fake"}, nil
}

func TestCrawlRunner_FollowsSameHostLinks(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/": `<a href="/a">a</a> <a href="https://elsewhere.com/x">x</a>`,
		"https://example.com/a": `<a href="/b#section">b</a>`,
		"https://example.com/b": `<p>leaf</p>`,
	}}
	c := &crawlRunner{fetcher: fetcher, budget: 10, pageTimeout: time.Second}

	urls, err := c.run(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/",
		"https://example.com/a",
		"https://example.com/b",
	}, urls)
}

func TestCrawlRunner_BudgetLimitsVisits(t *testing.T) {
	pages := make(map[string]string)
	for i := 0; i < 20; i++ {
		pages[fmt.Sprintf("https://example.com/p%d", i)] = fmt.Sprintf(`<a href="/p%d">next</a>`, i+1)
	}
	fetcher := &fakeFetcher{pages: pages}
	c := &crawlRunner{fetcher: fetcher, budget: 5, pageTimeout: time.Second}

	urls, err := c.run(context.Background(), "https://example.com/p0")
	require.NoError(t, err)
	assert.Len(t, urls, 5)
}

func TestCrawlRunner_SeedUnreachableIsFailure(t *testing.T) {
	// Only pages that actually load are discovered, so a dead seed
	// produces an error, not a phantom single-entry result.
	fetcher := &fakeFetcher{pages: map[string]string{}}
	c := &crawlRunner{fetcher: fetcher, budget: 5, pageTimeout: time.Second}

	_, err := c.run(context.Background(), "https://example.com/")
	assert.Error(t, err)
}

func TestMap_UnreachableSiteYieldsEmptySet(t *testing.T) {
	// Katana missing and every fallback fetch failing must surface as
	// an empty sequence, never as the seed echoed back.
	m := &Mapper{
		primary: &fakeRunner{err: errors.New("katana missing")},
		fallback: &crawlRunner{
			fetcher:     &fakeFetcher{pages: map[string]string{}},
			budget:      5,
			pageTimeout: time.Second,
		},
	}

	urls, err := m.Map(context.Background(), "https://example.com/news/")
	require.NoError(t, err)
	assert.Empty(t, urls)
}
