// Package ingest runs the full ingestion pass: link discovery, per-link
// scraping, normalization, fingerprinting, catalog matching and the queue
// upsert. Links are processed sequentially in discovery order; one failing
// link never stops the run.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leafgrid/catalog-sync/internal/fingerprint"
	"github.com/leafgrid/catalog-sync/internal/match"
	"github.com/leafgrid/catalog-sync/internal/model"
	"github.com/leafgrid/catalog-sync/internal/normalize"
	"github.com/leafgrid/catalog-sync/internal/queue"
	"github.com/leafgrid/catalog-sync/internal/scrape"
	"github.com/leafgrid/catalog-sync/pkg/erp"
)

// Catalog is the ERP surface the ingestion pass needs: a working login and
// one item snapshot per run.
type Catalog interface {
	Authenticate(ctx context.Context) error
	Items(ctx context.Context) ([]erp.Item, error)
}

// ImageStore downloads product images. Optional; a nil ImageStore disables
// image handling for the run.
type ImageStore interface {
	DownloadImage(ctx context.Context, imageURL, productName string) (string, error)
}

// Orchestrator wires the pipeline stages together for one ingestion pass.
type Orchestrator struct {
	store    queue.Store
	links    scrape.LinkSource
	scraper  scrape.Scraper
	catalog  Catalog
	images   ImageStore
	mappings normalize.Mappings

	listingURL string
}

// Options configures an Orchestrator.
type Options struct {
	Store      queue.Store
	Links      scrape.LinkSource
	Scraper    scrape.Scraper
	Catalog    Catalog
	Images     ImageStore
	Mappings   normalize.Mappings
	ListingURL string
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		store:      opts.Store,
		links:      opts.Links,
		scraper:    opts.Scraper,
		catalog:    opts.Catalog,
		images:     opts.Images,
		mappings:   opts.Mappings,
		listingURL: opts.ListingURL,
	}
}

// Run executes one ingestion pass and returns its report. Authentication or
// snapshot failures abort the run before any link is touched; everything
// after that is per-item.
func (o *Orchestrator) Run(ctx context.Context) (*model.RunReport, error) {
	report := &model.RunReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", report.ID))

	if err := o.catalog.Authenticate(ctx); err != nil {
		return nil, eris.Wrap(err, "ingest: erp authentication")
	}

	items, err := o.catalog.Items(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: load catalog snapshot")
	}
	snapshot := match.NewSnapshot(toMatchItems(items))
	log.Info("catalog snapshot loaded", zap.Int("items", snapshot.Len()))

	links, err := o.links.Links(ctx, o.listingURL)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: discover links")
	}
	log.Info("starting ingestion pass", zap.Int("links", len(links)))

	for _, link := range links {
		if ctx.Err() != nil {
			return report, eris.Wrap(ctx.Err(), "ingest: run cancelled")
		}
		report.Items = append(report.Items, o.processLink(ctx, log, snapshot, link))
	}

	report.FinishedAt = time.Now().UTC()
	persisted, skipped, failed := report.Counts()
	log.Info("ingestion pass finished",
		zap.Int("persisted", persisted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return report, nil
}

// processLink runs one link through the pipeline. Every error is converted
// into a failed ItemResult; nothing escapes to the run level.
func (o *Orchestrator) processLink(ctx context.Context, log *zap.Logger, snapshot *match.Snapshot, link string) model.ItemResult {
	existing, err := o.store.GetByURL(ctx, link)
	if err != nil {
		log.Error("queue lookup failed", zap.String("url", link), zap.Error(err))
		return model.ItemResult{URL: link, Outcome: model.OutcomeFailed, Error: err.Error()}
	}
	if existing != nil {
		return model.ItemResult{URL: link, Outcome: model.OutcomeSkipped, Status: existing.Status}
	}

	record, err := o.scraper.ScrapeDetail(ctx, link)
	if err != nil {
		log.Error("detail scrape failed", zap.String("url", link), zap.Error(err))
		return model.ItemResult{URL: link, Outcome: model.OutcomeFailed, Error: err.Error()}
	}
	if record.Empty() {
		log.Warn("scrape produced no product name, skipping", zap.String("url", link))
		return model.ItemResult{URL: link, Outcome: model.OutcomeSkipped}
	}

	normalize.Apply(record, o.mappings)

	// The cultivar-composed name is what the catalog knows products by, so
	// matching runs against it. The queue row keeps the raw scraped name.
	matchName := record.DisplayName
	if matchName == "" {
		matchName = record.Name
	}
	if record.Name != "" && record.Cultivar != "" {
		matchName = normalize.ComposeDisplayName(record.Name, record.Cultivar)
	}

	if o.images != nil && record.ImageURL != "" {
		path, err := o.images.DownloadImage(ctx, record.ImageURL, record.Name)
		if err != nil {
			// Missing images are tolerable; reviewers can import without one.
			log.Warn("image download failed", zap.String("url", link), zap.Error(err))
		} else {
			record.ImagePath = path
		}
	}

	status, info := match.Describe(snapshot.Match(matchName))
	entry := &model.QueueEntry{
		URL:         link,
		ProductHash: fingerprint.New(record.Manufacturer, record.Name, record.THC),
		ProductName: record.Name,
		Status:      status,
		MatchInfo:   info,
		Scraped:     *record,
	}

	if err := o.store.Upsert(ctx, entry); err != nil {
		log.Error("queue upsert failed", zap.String("url", link), zap.Error(err))
		return model.ItemResult{URL: link, Outcome: model.OutcomeFailed, Error: err.Error()}
	}

	log.Info("queued product",
		zap.String("url", link),
		zap.String("produktname", record.Name),
		zap.String("match_name", matchName),
		zap.String("status", string(status)),
		zap.String("match_info", info),
	)
	return model.ItemResult{URL: link, Outcome: model.OutcomePersisted, Status: status}
}

func toMatchItems(items []erp.Item) []match.Item {
	out := make([]match.Item, len(items))
	for i, it := range items {
		out[i] = match.Item{Number: it.Number, DisplayName: it.DisplayName}
	}
	return out
}
