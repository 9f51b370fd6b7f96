// Package lineup syncs the official product catalog. It fetches one
// fixed catalog page over plain HTTP (the page needs no script
// execution), extracts product records with a versioned structured-text
// pattern, and reconciles them against the store by catalog code.
package lineup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	"github.com/rpblab/beyscout/config"
	"github.com/rpblab/beyscout/models"
	"github.com/rpblab/beyscout/store"
)

// OfficialProduct is one extracted catalog entry, transient within a
// single sync pass.
type OfficialProduct struct {
	Code        string
	Name        string
	ProductType string
	Price       int
	ReleaseDate string
	URL         string
	IsLimited   bool
	LimitedType string
	BladeName   string
	Ratchet     string
	Bit         string
}

// SyncResult summarises one sync pass. Updated counts only records that
// actually persisted.
type SyncResult struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
}

// typeMapping maps the catalog's free-text type tokens to the fixed
// enumerated set. Unmapped tokens fall back to BOOSTER.
var typeMapping = map[string]string{
	"スターター":      "STARTER",
	"ブースター":      "BOOSTER",
	"ランダムブースター":  "RANDOM_BOOSTER",
	"セット":        "SET",
	"カスタマイズセット":  "SET",
	"ダブルスターター":   "DOUBLE_STARTER",
	"ツール":        "TOOL",
}

// Syncer is the domain sync adapter for the official catalog.
type Syncer struct {
	client   *resty.Client
	products store.ProductStore
	url      string
}

// NewSyncer creates a Syncer writing into the given product store.
func NewSyncer(cfg config.LineupConfig, products store.ProductStore) *Syncer {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "beyscout/1.0").
		SetHeader("Accept-Language", "ja-JP,ja;q=0.9")

	return &Syncer{
		client:   client,
		products: products,
		url:      cfg.URL,
	}
}

// SyncLineup fetches the catalog page, extracts every product, and
// upserts them by code. Per-item failures are logged and skipped; only
// a failed page fetch surfaces as an error.
func (s *Syncer) SyncLineup(ctx context.Context) (SyncResult, error) {
	slog.Info("fetching catalog lineup", "url", s.url)

	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return SyncResult{}, models.NewScrapeError(models.ErrCodeFetch, "catalog fetch failed", err)
	}
	if resp.StatusCode() >= 400 {
		return SyncResult{}, models.NewScrapeError(models.ErrCodeFetch,
			fmt.Sprintf("catalog fetch returned HTTP %d", resp.StatusCode()), nil)
	}

	html := normalizeBody(resp.Body(), resp.Header().Get("Content-Type"))
	products := ExtractProducts(html)
	slog.Info("catalog extracted", "products", len(products))

	result := SyncResult{Total: len(products)}
	for _, p := range products {
		if err := s.syncProduct(ctx, p); err != nil {
			slog.Error("product sync failed", "code", p.Code, "error", err)
			continue
		}
		result.Updated++
	}

	slog.Info("lineup sync finished", "total", result.Total, "updated", result.Updated)
	return result, nil
}

// ExtractProducts runs the pattern revisions over the raw document and
// returns the first revision's matches.
func ExtractProducts(content string) []OfficialProduct {
	for _, rev := range revisions {
		if products := rev.extract(content); len(products) > 0 {
			slog.Debug("pattern revision matched", "revision", rev.name(), "products", len(products))
			return products
		}
	}
	return nil
}

// syncProduct upserts one product and touches the related blade rarity.
func (s *Syncer) syncProduct(ctx context.Context, p OfficialProduct) error {
	record := store.ProductRecord{
		Code:        p.Code,
		Name:        p.Name,
		ProductType: mapProductType(p.ProductType),
		ProductLine: productLine(p.Code),
		Price:       p.Price,
		ReleaseDate: p.ReleaseDate,
		URL:         s.absoluteURL(p.URL),
		IsLimited:   p.IsLimited,
		LimitedNote: p.LimitedType,
		BladeName:   p.BladeName,
		Ratchet:     p.Ratchet,
		Bit:         p.Bit,
	}

	if err := s.products.UpsertProduct(ctx, record); err != nil {
		return err
	}

	if p.BladeName != "" {
		rarity := "Standard"
		if p.IsLimited {
			rarity = p.LimitedType
			if rarity == "" {
				rarity = "Limited"
			}
		}
		if err := s.products.MarkBladeRarity(ctx, p.BladeName, rarity); err != nil {
			// Rarity is a decoration; the product row is already saved.
			slog.Warn("blade rarity update failed", "blade", p.BladeName, "error", err)
		}
	}
	return nil
}

func mapProductType(token string) string {
	if mapped, ok := typeMapping[strings.TrimSpace(token)]; ok {
		return mapped
	}
	return "BOOSTER"
}

// productLine derives the product line from the code prefix.
func productLine(code string) string {
	switch {
	case strings.HasPrefix(code, "BX"):
		return "BX"
	case strings.HasPrefix(code, "UX"):
		return "UX"
	default:
		return "CX"
	}
}

// absoluteURL resolves catalog-relative product links against the
// lineup page.
func (s *Syncer) absoluteURL(productURL string) string {
	if productURL == "" || strings.HasPrefix(productURL, "http") {
		return productURL
	}
	base, err := url.Parse(s.url)
	if err != nil {
		return productURL
	}
	resolved, err := base.Parse(productURL)
	if err != nil {
		return productURL
	}
	return resolved.String()
}

// normalizeBody converts the response body to UTF-8 when the catalog
// page ships in a legacy encoding.
func normalizeBody(body []byte, contentType string) string {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return string(body)
	}
	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
