package scrape

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ListingLinks extracts product detail links from storefront listing pages.
// Card grids link the same product more than once, so discovery order is
// preserved while duplicates are dropped.
type ListingLinks struct {
	fetcher ContentFetcher
}

// NewListingLinks creates a ListingLinks reading pages through fetcher.
func NewListingLinks(fetcher ContentFetcher) *ListingLinks {
	return &ListingLinks{fetcher: fetcher}
}

// Links returns the product URLs on the listing page, absolute, deduplicated,
// in page order.
func (l *ListingLinks) Links(ctx context.Context, listingURL string) ([]string, error) {
	body, err := l.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch listing %s", listingURL)
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: parse listing %s", listingURL)
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: parse listing url %s", listingURL)
	}

	cells := doc.all(func(n *html.Node) bool {
		return isTag(n, "div") && classContains(n, "MuiGrid2-grid-xs-6")
	})

	var links []string
	seen := make(map[string]bool)
	for _, cell := range cells {
		cards := descendants(cell, func(n *html.Node) bool {
			return isTag(n, "div") && classContains(n, "MuiCard-root")
		})
		for _, card := range cards {
			anchors := descendants(card, func(n *html.Node) bool { return isTag(n, "a") })
			for _, a := range anchors {
				href := strings.TrimSpace(attr(a, "href"))
				if href == "" {
					continue
				}
				ref, err := url.Parse(href)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref).String()
				if seen[abs] {
					continue
				}
				seen[abs] = true
				links = append(links, abs)
			}
		}
	}

	zap.L().Info("extracted listing links",
		zap.String("listing", listingURL),
		zap.Int("count", len(links)),
	)
	return links, nil
}
