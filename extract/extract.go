// Package extract turns a raw fetched payload into structured page
// fields. All extraction is heuristic: the target site guarantees no
// contract, so a missing field is "absent", never an error.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rpblab/beyscout/fetch"
	"github.com/rpblab/beyscout/models"
)

// metaKeys is the fixed metadata key set read from the document.
// og:description doubles as the description fallback.
var metaKeys = []string{"description", "og:image", "og:site_name", "og:type"}

// catalogCodeRe matches product catalog codes such as BX-01 or UX-100.
var catalogCodeRe = regexp.MustCompile(`\b([A-Z]{2,3}-\d{2,3})\b`)

// Fields is the structured output of extraction, before Markdown
// conversion and translation are layered on.
type Fields struct {
	Title    string
	Language string
	Links    []string
	Metadata map[string]string
	Product  *models.Product
}

// Page extracts all structured fields from a fetched payload.
func Page(payload *fetch.Payload) (*Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload.HTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "parse document", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = payload.Title
	}

	lang, _ := doc.Find("html").Attr("lang")
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = models.DefaultLanguage
	}

	bodyText := doc.Find("body").Text()

	return &Fields{
		Title:    title,
		Language: lang,
		Links:    Links(doc),
		Metadata: Metadata(doc),
		Product:  DetectProduct(title, bodyText),
	}, nil
}

// Links collects anchor hrefs, keeping only absolute http(s) URLs,
// deduplicated. Order follows first appearance; callers treat the
// result as a set.
func Links(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	links := []string{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, "http") {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links
}

// Metadata reads the fixed meta key set from name= and property=
// attributes. Missing keys map to "", never to an absent entry.
func Metadata(doc *goquery.Document) map[string]string {
	get := func(key string) string {
		content := ""
		doc.Find(`meta[name="` + key + `"], meta[property="` + key + `"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if c, ok := s.Attr("content"); ok && c != "" {
				content = c
				return false
			}
			return true
		})
		return content
	}

	description := get("description")
	if description == "" {
		description = get("og:description")
	}

	return map[string]string{
		"description": description,
		"image":       get("og:image"),
		"siteName":    get("og:site_name"),
		"type":        get("og:type"),
	}
}

// typeKeywords maps catalog-page vocabulary to the product type used in
// the heuristic descriptor. Checked in order; first hit wins.
var typeKeywords = []struct {
	keyword string
	typ     string
}{
	{"ランダムブースター", "RANDOM_BOOSTER"},
	{"ダブルスターター", "DOUBLE_STARTER"},
	{"スターター", "STARTER"},
	{"ブースター", "BOOSTER"},
	{"セット", "SET"},
	{"ツール", "TOOL"},
}

// DetectProduct applies the catalog-code heuristic to the page title
// and body text. No code match means no product, not an error.
func DetectProduct(title, bodyText string) *models.Product {
	code := catalogCodeRe.FindString(title)
	if code == "" {
		code = catalogCodeRe.FindString(bodyText)
	}
	if code == "" {
		return nil
	}

	// Product pages title as "<name> | <site name>".
	name := title
	if idx := strings.Index(title, "|"); idx >= 0 {
		name = title[:idx]
	}
	name = strings.TrimSpace(name)

	typ := "OTHER"
	for _, tk := range typeKeywords {
		if strings.Contains(bodyText, tk.keyword) {
			typ = tk.typ
			break
		}
	}

	return &models.Product{
		Code:      code,
		Name:      name,
		Type:      typ,
		IsLimited: strings.Contains(bodyText, "限定"),
	}
}
