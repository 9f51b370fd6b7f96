// Package fetch provides the two interchangeable page-fetch strategies:
// a static HTTP parse (light) and a full browser render (heavy).
//
// Both produce structurally equivalent payloads so the extractor never
// needs to know which strategy ran. The strategy is chosen once per
// scraper.Service via configuration, never per URL.
package fetch

import "context"

// Payload is the raw result of fetching one page.
type Payload struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects. Equals URL when unknown.
	FinalURL string

	// Title is the document title, best-effort ("" if absent).
	Title string

	// HTML is the full document markup. For the heavy strategy this is
	// the rendered DOM; for the light strategy the response body.
	HTML string

	// Method records how the page was fetched: "browser" or "static".
	Method string
}

// Strategy fetches one page. Implementations must be safe for
// concurrent use; MaxConcurrent reports how many in-flight fetches the
// strategy can sustain.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (*Payload, error)
	MaxConcurrent() int
	Close()
}
