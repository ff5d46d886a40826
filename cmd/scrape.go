package main

import (
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leafgrid/catalog-sync/internal/fetcher"
	"github.com/leafgrid/catalog-sync/internal/ingest"
	"github.com/leafgrid/catalog-sync/internal/normalize"
	"github.com/leafgrid/catalog-sync/internal/resilience"
	"github.com/leafgrid/catalog-sync/internal/scrape"
	"github.com/leafgrid/catalog-sync/pkg/erp"
)

var scrapeListingURL string

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one ingestion pass over the storefront listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}
		ctx := cmd.Context()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}

		listingURL := scrapeListingURL
		if listingURL == "" {
			listingURL = cfg.Scrape.ListingURL
		}

		mappings, err := normalize.LoadMappings(cfg.Scrape.MappingsPath)
		if err != nil {
			return err
		}

		httpFetcher := fetcher.New(fetcher.Options{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			Retry: resilience.RetryConfig{
				MaxAttempts:    cfg.Fetch.MaxAttempts,
				InitialBackoff: time.Duration(cfg.Fetch.BackoffSecs * float64(time.Second)),
				OnRetry:        resilience.RetryLogger("storefront", "fetch"),
			},
			RateLimiters: storefrontLimiters(cfg.Scrape.BaseURL, cfg.Fetch.RequestsPerSec),
		})

		erpClient := erp.NewClient(erp.Config{
			BaseURL:      cfg.ERP.BaseURL,
			TokenURL:     cfg.ERP.TokenURL,
			ClientID:     cfg.ERP.ClientID,
			ClientSecret: cfg.ERP.ClientSecret,
			Scope:        cfg.ERP.Scope,
			Timeout:      time.Duration(cfg.ERP.TimeoutSecs) * time.Second,
			Retry: resilience.RetryConfig{
				OnRetry: resilience.RetryLogger("erp", "request"),
			},
		})

		orchestrator := ingest.New(ingest.Options{
			Store:      store,
			Links:      scrape.NewListingLinks(httpFetcher),
			Scraper:    scrape.NewHTMLScraper(httpFetcher),
			Catalog:    erpClient,
			Images:     fetcher.NewAssetStore(httpFetcher, cfg.Assets.Dir, cfg.Scrape.BaseURL),
			Mappings:   mappings,
			ListingURL: listingURL,
		})

		report, err := orchestrator.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "scrape: run")
		}

		persisted, skipped, failed := report.Counts()
		zap.L().Info("run report",
			zap.String("run_id", report.ID),
			zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
			zap.Int("links", len(report.Items)),
			zap.Int("persisted", persisted),
			zap.Int("skipped", skipped),
			zap.Int("failed", failed),
		)
		return nil
	},
}

// storefrontLimiters builds the per-host rate limiter map for the storefront
// host. Image CDNs and other hosts fall back to the fetcher default.
func storefrontLimiters(baseURL string, rps float64) map[string]*rate.Limiter {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return map[string]*rate.Limiter{
		u.Host: rate.NewLimiter(rate.Limit(rps), max(int(rps), 1)),
	}
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeListingURL, "listing-url", "", "listing page URL (default from config)")
	rootCmd.AddCommand(scrapeCmd)
}
