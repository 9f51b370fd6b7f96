// Package store persists catalog products and scraped pages in sqlite.
// All writes are idempotent upserts keyed by a natural key: product
// code for products, a URL-derived slug for pages. Nothing is ever
// deleted here; removal is an administrative action.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/rpblab/beyscout/simhash"
)

// changeThreshold is the SimHash Hamming distance under which a page's
// content counts as unchanged.
const changeThreshold = 3

// ProductRecord is one catalog product row.
type ProductRecord struct {
	Code        string
	Name        string
	ProductType string
	ProductLine string
	Price       int
	ReleaseDate string
	URL         string
	IsLimited   bool
	LimitedNote string
	BladeName   string
	Ratchet     string
	Bit         string
}

// PageRecord is one scraped content page row.
type PageRecord struct {
	Slug     string
	Title    string
	URL      string
	Language string
	Content  string
	Image    string
}

// ProductStore is the persistence surface the lineup sync adapter needs.
type ProductStore interface {
	UpsertProduct(ctx context.Context, p ProductRecord) error
	MarkBladeRarity(ctx context.Context, bladeName, rarity string) error
}

// PageStore is the persistence surface the news sync flow needs.
// UpsertPage reports whether the stored content actually changed.
type PageStore interface {
	UpsertPage(ctx context.Context, p PageRecord) (changed bool, err error)
}

// Store implements ProductStore and PageStore over sqlite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	code         TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	product_type TEXT NOT NULL,
	product_line TEXT NOT NULL,
	price        INTEGER NOT NULL DEFAULT 0,
	release_date TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	is_limited   INTEGER NOT NULL DEFAULT 0,
	limited_note TEXT NOT NULL DEFAULT '',
	blade_name   TEXT NOT NULL DEFAULT '',
	ratchet      TEXT NOT NULL DEFAULT '',
	bit          TEXT NOT NULL DEFAULT '',
	updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pages (
	slug        TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	language    TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	image       TEXT NOT NULL DEFAULT '',
	fingerprint INTEGER NOT NULL DEFAULT 0,
	updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS blades (
	name   TEXT PRIMARY KEY,
	rarity TEXT NOT NULL DEFAULT 'Standard'
);
`

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertProduct inserts a product or, when the code already exists,
// updates the volatile fields. Product type and line are fixed at first
// sight of a code; later catalog revisions do not reclassify.
func (s *Store) UpsertProduct(ctx context.Context, p ProductRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products
			(code, name, product_type, product_line, price, release_date,
			 url, is_limited, limited_note, blade_name, ratchet, bit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name         = excluded.name,
			price        = excluded.price,
			release_date = excluded.release_date,
			url          = excluded.url,
			is_limited   = excluded.is_limited,
			limited_note = excluded.limited_note,
			blade_name   = excluded.blade_name,
			ratchet      = excluded.ratchet,
			bit          = excluded.bit,
			updated_at   = datetime('now')`,
		p.Code, p.Name, p.ProductType, p.ProductLine, p.Price, p.ReleaseDate,
		p.URL, boolToInt(p.IsLimited), p.LimitedNote, p.BladeName, p.Ratchet, p.Bit,
	)
	if err != nil {
		return fmt.Errorf("store: upsert product %s: %w", p.Code, err)
	}
	return nil
}

// MarkBladeRarity records the rarity of a blade part by name.
func (s *Store) MarkBladeRarity(ctx context.Context, bladeName, rarity string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blades (name, rarity) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET rarity = excluded.rarity`,
		bladeName, rarity,
	)
	if err != nil {
		return fmt.Errorf("store: mark blade rarity %s: %w", bladeName, err)
	}
	return nil
}

// UpsertPage stores a page keyed by slug. Content that is near-identical
// to the stored version (by SimHash distance) is skipped and reported
// as unchanged.
func (s *Store) UpsertPage(ctx context.Context, p PageRecord) (bool, error) {
	fp := simhash.Fingerprint(p.Content)

	var existing int64
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint FROM pages WHERE slug = ?`, p.Slug,
	).Scan(&existing)
	switch {
	case err == nil:
		if simhash.Similar(uint64(existing), fp, changeThreshold) {
			return false, nil
		}
	case errors.Is(err, sql.ErrNoRows):
		// first sighting
	default:
		return false, fmt.Errorf("store: lookup page %s: %w", p.Slug, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pages (slug, title, url, language, content, image, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title       = excluded.title,
			url         = excluded.url,
			language    = excluded.language,
			content     = excluded.content,
			image       = excluded.image,
			fingerprint = excluded.fingerprint,
			updated_at  = datetime('now')`,
		p.Slug, p.Title, p.URL, p.Language, p.Content, p.Image, int64(fp),
	)
	if err != nil {
		return false, fmt.Errorf("store: upsert page %s: %w", p.Slug, err)
	}
	return true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
