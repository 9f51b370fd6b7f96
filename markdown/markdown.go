// Package markdown converts sanitized HTML into Markdown. Conversion is
// deterministic: converter options are fixed at construction, so
// identical input always yields identical output across runs, which
// downstream persistence relies on for change detection.
package markdown

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// Extract modes for the converter.
const (
	ModeRaw     = "raw"     // convert the whole stripped document
	ModeArticle = "article" // readability main-content extraction first
)

// Converter is a reusable, goroutine-safe HTML→Markdown converter.
type Converter struct {
	conv *converter.Converter
	mode string
}

// New creates a Converter. mode is ModeRaw or ModeArticle; anything
// else falls back to ModeRaw.
func New(mode string) *Converter {
	if mode != ModeArticle {
		mode = ModeRaw
	}
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
		mode: mode,
	}
}

// Convert strips noise elements from rawHTML and converts the rest to
// Markdown. sourceURL resolves relative links so the output is
// self-contained. A page with no convertible body yields "", not an
// error.
func (c *Converter) Convert(rawHTML, sourceURL string) (string, error) {
	cleaned := StripNoise(rawHTML)

	if c.mode == ModeArticle {
		if article, ok := c.extractArticle(cleaned, sourceURL); ok {
			cleaned = article
		}
	}

	md, err := c.conv.ConvertString(cleaned, converter.WithDomain(sourceURL))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}

// extractArticle runs readability over the stripped HTML. Failure or an
// empty result falls back to the full document.
func (c *Converter) extractArticle(cleaned, sourceURL string) (string, bool) {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return "", false
	}
	article, err := readability.FromReader(strings.NewReader(cleaned), parsed)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		slog.Debug("readability extraction failed, using full document", "url", sourceURL, "error", err)
		return "", false
	}
	return article.Content, true
}
