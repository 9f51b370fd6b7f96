package lineup

import (
	"regexp"
	"strconv"
	"strings"
)

// The catalog markup has no contract: extraction patterns are coupled
// to whatever the site currently ships. Each known markup revision gets
// its own patternRevision; a markup change means adding a revision, not
// rewriting the adapter. All revisions run against the raw fetched
// document, never against converted Markdown.
type patternRevision interface {
	name() string
	extract(content string) []OfficialProduct
}

// revisions are tried in order; the first one that matches anything wins.
var revisions = []patternRevision{
	htmlStructureRevision{},
	bracketTextRevision{},
}

// htmlStructureRevision matches the product-card markup in use since
// early 2026:
//
//	<a href="bx01.html"> … <b>BX-01<span>Name</span></b> …
//	<p class="category"><span>Type</span></p> … <i>¥1,980…</i> …
//	<i class="red">2023.7.15…</i>
type htmlStructureRevision struct{}

var htmlProductRe = regexp.MustCompile(`(?s)<a href="([^"]+)">.*?<b>((?:BX|UX|CX)-\d{2,3})<span>([^<]+)</span></b>.*?<p class="category"><span>([^<]+)</span></p>.*?<i>¥([\d,]+)[^<]*</i>.*?<i class="red">([\d.]+)[^<]*</i>`)

func (htmlStructureRevision) name() string { return "html-structure" }

func (htmlStructureRevision) extract(content string) []OfficialProduct {
	var products []OfficialProduct
	for _, m := range htmlProductRe.FindAllStringSubmatch(content, -1) {
		p, ok := buildProduct(m[2], m[3], m[4], m[5], m[6], m[1])
		if ok {
			products = append(products, p)
		}
	}
	return products
}

// bracketTextRevision matches the older list-style rendering, with or
// without the link wrapper:
//
//	[BX-01 Dran Sword 3-60F スターター ¥1,980（税込） 2023.7.15発売](url)
type bracketTextRevision struct{}

var bracketProductRe = regexp.MustCompile(`\[?((?:BX|UX|CX)-\d{2,3})\s+(.+?)\s+(\S*(?:スターター|ブースター|セット|ツール)\S*)\s*¥([\d,]+)（税込）\s*([\d.]+)発売(?:\]\(([^)]+)\))?`)

func (bracketTextRevision) name() string { return "bracket-text" }

func (bracketTextRevision) extract(content string) []OfficialProduct {
	var products []OfficialProduct
	for _, m := range bracketProductRe.FindAllStringSubmatch(content, -1) {
		p, ok := buildProduct(m[1], m[2], m[3], m[4], m[5], m[6])
		if ok {
			products = append(products, p)
		}
	}
	return products
}

// buildProduct normalizes one raw pattern match into an OfficialProduct.
// Incomplete matches are dropped, not errors.
func buildProduct(code, name, typeStr, priceStr, dateStr, url string) (OfficialProduct, bool) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	typeStr = strings.TrimSpace(typeStr)
	if code == "" || name == "" || typeStr == "" || dateStr == "" {
		return OfficialProduct{}, false
	}

	price, _ := strconv.Atoi(strings.ReplaceAll(priceStr, ",", ""))
	isLimited := strings.Contains(name, "限定") || strings.Contains(typeStr, "限定")

	p := OfficialProduct{
		Code:        code,
		Name:        name,
		ProductType: typeStr,
		Price:       price,
		// 2023.7.15 -> 2023-7-15
		ReleaseDate: strings.ReplaceAll(dateStr, ".", "-"),
		URL:         url,
		IsLimited:   isLimited,
	}
	if isLimited {
		p.LimitedType = "Limited"
	}

	parts := parseBeyName(name)
	p.BladeName = parts.blade
	p.Ratchet = parts.ratchet
	p.Bit = parts.bit

	return p, true
}

// beyParts is the decomposition of a product name into its components.
type beyParts struct {
	blade   string
	ratchet string
	bit     string
}

var (
	metalCoatRe = regexp.MustCompile(`メタルコート:[^\s]+`)
	colorVerRe  = regexp.MustCompile(`(?i)\s*(ブラックVer\.|レッドVer\.|クリアVer\.)`)
	beyNameRe   = regexp.MustCompile(`(?i)^(.+?)(\d-\d{2})([A-Z]{1,3})$`)
)

// parseBeyName splits "Dran Sword 3-60F" into blade "Dran Sword",
// ratchet "3-60", and bit "F". Names that do not follow the pattern
// (tools, sets, stadiums) yield empty parts.
func parseBeyName(name string) beyParts {
	clean := metalCoatRe.ReplaceAllString(name, "")
	clean = colorVerRe.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)

	m := beyNameRe.FindStringSubmatch(clean)
	if m == nil {
		return beyParts{}
	}
	return beyParts{
		blade:   strings.TrimSpace(m[1]),
		ratchet: m[2],
		bit:     strings.ToUpper(m[3]),
	}
}
