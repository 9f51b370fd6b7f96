// Package translate provides the optional translation capability of the
// scrape pipeline. Absence of a backend is a valid runtime state, not a
// misconfiguration: translation then degrades to a pass-through.
package translate

import (
	"context"
	"log/slog"
	"strings"
)

// FailureSentinel prefixes the original text when the backend errored.
// Downstream consumers always receive displayable text; a failed
// translation never aborts a page.
const FailureSentinel = "[auto-translation failed]\n\n"

// minTextLength skips backend calls for trivial strings to avoid
// wasting quota.
const minTextLength = 32

// Backend performs the actual translation call.
type Backend interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Translator applies the no-op and failure policy around a Backend.
type Translator struct {
	backend Backend
}

// New creates a Translator. A nil backend means translation is
// unavailable and every call passes the input through unchanged.
func New(backend Backend) *Translator {
	return &Translator{backend: backend}
}

// Available reports whether a backend is configured.
func (t *Translator) Available() bool { return t.backend != nil }

// Translate returns text translated into targetLang, or text unchanged
// when: no backend is configured, the text is below the minimum length,
// or source and target languages already match. A backend error returns
// the text with FailureSentinel prepended.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	if t.backend == nil || targetLang == "" || sameLang(sourceLang, targetLang) {
		return text
	}
	if len(strings.TrimSpace(text)) < minTextLength {
		return text
	}

	translated, err := t.backend.Translate(ctx, text, targetLang)
	if err != nil {
		slog.Warn("translation failed, returning original text",
			"targetLang", targetLang, "error", err)
		return FailureSentinel + text
	}
	return translated
}

// sameLang compares language tags on their primary subtag, so "ja" and
// "ja-JP" count as the same language.
func sameLang(a, b string) bool {
	return strings.EqualFold(primarySubtag(a), primarySubtag(b))
}

func primarySubtag(tag string) string {
	if idx := strings.IndexAny(tag, "-_"); idx > 0 {
		return tag[:idx]
	}
	return tag
}
