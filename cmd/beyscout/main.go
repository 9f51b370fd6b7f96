package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rpblab/beyscout/config"
	"github.com/rpblab/beyscout/lineup"
	"github.com/rpblab/beyscout/models"
	"github.com/rpblab/beyscout/notify"
	"github.com/rpblab/beyscout/scraper"
	"github.com/rpblab/beyscout/store"
)

var version = "dev"

var (
	targetLang string
	outputJSON bool
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config.Load()
	initLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:          "beyscout",
		Short:        "Site mapper and scraper for the Beyblade X community",
		Version:      version,
		SilenceUsage: true,
	}

	mapCmd := &cobra.Command{
		Use:   "map <url>",
		Short: "Discover same-host URLs reachable from a seed URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(ctx, cfg, args[0])
		},
	}

	scrapeCmd := &cobra.Command{
		Use:   "scrape <url>...",
		Short: "Scrape one or more URLs into Markdown pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(ctx, cfg, args)
		},
	}
	scrapeCmd.Flags().StringVar(&targetLang, "lang", "", "Target language for translation (empty disables)")
	scrapeCmd.Flags().BoolVar(&outputJSON, "json", false, "Emit pages as JSON instead of Markdown")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the official product lineup into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(ctx, cfg)
		},
	}

	newsCmd := &cobra.Command{
		Use:   "news <url>",
		Short: "Map and scrape a news site, storing changed pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNews(ctx, cfg, args[0])
		},
	}
	newsCmd.Flags().StringVar(&targetLang, "lang", "", "Target language for translation (empty disables)")

	rootCmd.AddCommand(mapCmd, scrapeCmd, syncCmd, newsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMap(ctx context.Context, cfg *config.Config, seed string) error {
	svc, err := scraper.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	urls, err := svc.MapSite(ctx, seed)
	if err != nil {
		return err
	}
	for _, u := range urls {
		fmt.Println(u)
	}
	slog.Info("site mapped", "seed", seed, "urls", len(urls))
	return nil
}

func runScrape(ctx context.Context, cfg *config.Config, urls []string) error {
	svc, err := scraper.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	pages, err := svc.Scrape(ctx, urls, targetLang)
	if err != nil {
		return err
	}
	models.SortPages(pages)

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pages)
	}

	for _, p := range pages {
		fmt.Printf("# %s\n%s\n\n%s\n\n", p.Title, p.URL, p.TranslatedMarkdown)
	}
	slog.Info("scrape finished", "requested", len(urls), "scraped", len(pages))
	return nil
}

func runSync(ctx context.Context, cfg *config.Config) error {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	syncer := lineup.NewSyncer(cfg.Lineup, db)
	result, err := syncer.SyncLineup(ctx)
	if err != nil {
		return err
	}

	notifier := notify.New(cfg.Notify)
	if err := notifier.Notify(ctx, "lineup.synced", result); err != nil {
		slog.Warn("sync notification failed", "error", err)
	}

	fmt.Printf("synced %d/%d products\n", result.Updated, result.Total)
	return nil
}

func runNews(ctx context.Context, cfg *config.Config, seed string) error {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := scraper.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	urls, err := svc.MapSite(ctx, seed)
	if err != nil {
		return err
	}
	pages, err := svc.Scrape(ctx, urls, targetLang)
	if err != nil {
		return err
	}

	var updated []string
	for _, p := range pages {
		if p.Markdown == "" {
			continue
		}
		content := p.TranslatedMarkdown
		if content == "" {
			content = p.Markdown
		}
		changed, err := db.UpsertPage(ctx, store.PageRecord{
			Slug:     pageSlug(p.URL),
			Title:    p.Title,
			URL:      p.URL,
			Language: p.Language,
			Content:  content,
			Image:    p.Metadata["image"],
		})
		if err != nil {
			slog.Error("page store failed", "url", p.URL, "error", err)
			continue
		}
		if changed {
			updated = append(updated, p.URL)
		}
	}

	if len(updated) > 0 {
		notifier := notify.New(cfg.Notify)
		if err := notifier.Notify(ctx, "news.updated", updated); err != nil {
			slog.Warn("news notification failed", "error", err)
		}
	}

	fmt.Printf("scraped %d pages, %d changed\n", len(pages), len(updated))
	return nil
}

// pageSlug derives a stable store key from a page URL: the last
// non-empty path segment, or the host for a bare root URL.
func pageSlug(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
