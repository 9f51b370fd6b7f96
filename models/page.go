package models

import "sort"

// DefaultLanguage is assumed when a document carries no lang attribute.
// The primary target site is Japanese.
const DefaultLanguage = "ja"

// ScrapedPage is the result of fetching, extracting, and converting a
// single URL. It is immutable after the pipeline assembles it.
type ScrapedPage struct {
	// URL is the canonical fetched URL (after redirects).
	URL string `json:"url"`

	// Title is the page title, or "" if the document has none.
	Title string `json:"title"`

	// Language is the ISO-ish tag from <html lang>, or DefaultLanguage.
	Language string `json:"language"`

	// Markdown is the full-page Markdown after noise stripping.
	// Never empty-string-vs-nil ambiguous: extraction failure yields "".
	Markdown string `json:"markdown"`

	// TranslatedMarkdown equals Markdown unchanged when no translation was
	// performed. A failed translation is signalled by a sentinel prefix,
	// never by an error, so consumers always get displayable text.
	TranslatedMarkdown string `json:"translatedMarkdown"`

	// Links holds deduplicated absolute URLs found on the page.
	// Order is not significant.
	Links []string `json:"links"`

	// Product is set only when a catalog code was detected on the page.
	Product *Product `json:"product,omitempty"`

	// Metadata holds meta/open-graph values for a fixed key set
	// (description, image, siteName, type). Missing keys map to "".
	Metadata map[string]string `json:"metadata"`
}

// Product is the heuristic product descriptor detected on a scraped page.
// Code is always non-empty when Product is present.
type Product struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Price       int    `json:"price,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	IsLimited   bool   `json:"isLimited"`
}

// SortPages orders pages by URL. Scrape results arrive in completion
// order; callers that need a stable order re-sort with this.
func SortPages(pages []*ScrapedPage) {
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].URL < pages[j].URL
	})
}
