// Package scrape extracts product records and listing links from storefront
// HTML. Every field extractor degrades to an empty value when its markup is
// missing, so partial pages still yield usable records.
package scrape

import (
	"context"

	"github.com/leafgrid/catalog-sync/internal/model"
)

// ContentFetcher retrieves raw page bytes. Satisfied by fetcher.HTTPFetcher.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Scraper extracts a product record from a detail page.
type Scraper interface {
	ScrapeDetail(ctx context.Context, url string) (*model.Record, error)
}

// LinkSource discovers product detail links from a listing page.
type LinkSource interface {
	Links(ctx context.Context, listingURL string) ([]string, error)
}
