package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/leafgrid/catalog-sync/internal/model"
	"github.com/leafgrid/catalog-sync/internal/normalize"
)

// DefaultProductGroup is assigned when the page carries no explicit group.
const DefaultProductGroup = "Blüten"

// attributeKeywords maps each capped list field to the section headers it can
// appear under on the detail page.
var attributeKeywords = []struct {
	assign   func(r *model.Record, items []string)
	keywords []string
}{
	{func(r *model.Record, items []string) { r.Effects = items }, []string{"Effekte", "Wirkung"}},
	{func(r *model.Record, items []string) { r.Aromas = items }, []string{"Aroma", "Geschmack"}},
	{func(r *model.Record, items []string) { r.Terpenes = items }, []string{"Terpene"}},
	{func(r *model.Record, items []string) { r.MedicalUses = items }, []string{"Medizinische Wirkung", "Medizinische Wirkung bei"}},
}

// HTMLScraper extracts product records from storefront detail pages.
type HTMLScraper struct {
	fetcher      ContentFetcher
	productGroup string
}

// NewHTMLScraper creates an HTMLScraper reading pages through fetcher.
func NewHTMLScraper(fetcher ContentFetcher) *HTMLScraper {
	return &HTMLScraper{fetcher: fetcher, productGroup: DefaultProductGroup}
}

// ScrapeDetail fetches and parses a product detail page. Missing markup for
// any single field yields an empty value for that field only.
func (s *HTMLScraper) ScrapeDetail(ctx context.Context, url string) (*model.Record, error) {
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch detail %s", url)
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: parse detail %s", url)
	}

	r := &model.Record{
		URL:          url,
		ProductGroup: s.productGroup,
	}
	r.Name = extractName(doc)
	r.DisplayName = extractBreadcrumbName(doc, r.Name)
	r.Manufacturer = extractManufacturer(doc)
	r.Origin = extractOrigin(doc)
	r.Irradiation = extractIrradiation(doc)
	r.THC = extractLabeledNumber(doc, "THC")
	r.CBD = extractLabeledNumber(doc, "CBD")
	r.Genetic = extractGenetic(doc)
	r.Cultivar = extractCultivar(doc)
	r.ImageURL = extractImageURL(doc)

	for _, kw := range attributeKeywords {
		kw.assign(r, extractAttributeList(doc, kw.keywords))
	}

	zap.L().Debug("scraped detail page",
		zap.String("url", url),
		zap.String("name", r.Name),
		zap.String("manufacturer", r.Manufacturer),
	)
	return r, nil
}

func extractName(doc *document) string {
	if h1 := doc.first(func(n *html.Node) bool { return isTag(n, "h1") }); h1 != nil {
		return text(h1)
	}
	return ""
}

// extractBreadcrumbName takes the last breadcrumb segment as the catalog
// display name, falling back to the page title.
func extractBreadcrumbName(doc *document, fallback string) string {
	crumbs := doc.all(func(n *html.Node) bool {
		return isTag(n, "li") && classContains(n, "MuiBreadcrumbs-li")
	})
	for i := len(crumbs) - 1; i >= 0; i-- {
		ps := descendants(crumbs[i], func(n *html.Node) bool { return isTag(n, "p") })
		if len(ps) > 0 {
			if t := text(ps[len(ps)-1]); t != "" {
				return t
			}
		}
	}
	return fallback
}

// extractManufacturer finds the assortment label and reads the next paragraph
// after it, wherever it is nested.
func extractManufacturer(doc *document) string {
	label := doc.first(func(n *html.Node) bool {
		return strings.Contains(ownText(n), "Im Sortiment von")
	})
	if label == nil {
		return ""
	}
	p := doc.following(label, func(n *html.Node) bool { return isTag(n, "p") })
	if p == nil {
		return ""
	}
	return text(p)
}

// extractLabeledNumber reads the paragraph after an exact label paragraph
// ("THC", "CBD") and normalizes it to a rounded integer string.
func extractLabeledNumber(doc *document, label string) string {
	node := doc.first(func(n *html.Node) bool {
		return isTag(n, "p") && ownText(n) == label
	})
	if node == nil {
		return ""
	}
	p := doc.following(node, func(n *html.Node) bool { return isTag(n, "p") })
	if p == nil {
		return ""
	}
	return normalize.CleanNumber(text(p))
}

// extractOrigin reads the country name next to the flag icon.
func extractOrigin(doc *document) string {
	img := doc.first(func(n *html.Node) bool {
		return isTag(n, "img") && strings.Contains(attr(n, "src"), "flagcdn")
	})
	if img == nil || img.Parent == nil {
		return ""
	}
	return text(img.Parent)
}

func extractIrradiation(doc *document) string {
	// NotIrradiated must be checked first; its testid contains "Irradiated".
	if doc.first(func(n *html.Node) bool {
		return strings.Contains(attr(n, "data-testid"), "NotIrradiated")
	}) != nil {
		return "Unbestrahlt"
	}
	if doc.first(func(n *html.Node) bool {
		return strings.Contains(attr(n, "data-testid"), "Irradiated")
	}) != nil {
		return "Bestrahlt"
	}
	return ""
}

func extractGenetic(doc *document) string {
	chips := doc.all(func(n *html.Node) bool { return classContains(n, "MuiChip-label") })
	for _, chip := range chips {
		t := text(chip)
		for _, kind := range []string{"Hybrid", "Indica", "Sativa"} {
			if strings.Contains(t, kind) {
				return t
			}
		}
	}
	return ""
}

// extractCultivar reads the strain link below the strain section header.
func extractCultivar(doc *document) string {
	header := doc.first(func(n *html.Node) bool {
		return isTag(n, "h3") && strings.Contains(ownText(n), "Über diesen Strain")
	})
	if header == nil {
		return ""
	}
	link := doc.following(header, func(n *html.Node) bool {
		return isTag(n, "a") && strings.Contains(attr(n, "href"), "/strain/")
	})
	if link == nil {
		return ""
	}
	return text(link)
}

func extractImageURL(doc *document) string {
	grids := doc.all(func(n *html.Node) bool {
		return isTag(n, "div") && classContains(n, "MuiGrid-item")
	})
	for _, grid := range grids {
		imgs := descendants(grid, func(n *html.Node) bool { return isTag(n, "img") })
		for _, img := range imgs {
			src := attr(img, "src")
			if src != "" && (strings.Contains(src, "next/image") || strings.Contains(src, "assets.")) {
				return src
			}
		}
	}
	return ""
}

// extractAttributeList collects chip and body texts from the first section
// under any of the keyword headers, deduplicated and capped.
func extractAttributeList(doc *document, keywords []string) []string {
	var items []string
	seen := make(map[string]bool)
	isKeyword := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		isKeyword[kw] = true
	}

	for _, kw := range keywords {
		headers := doc.all(func(n *html.Node) bool {
			return isTag(n, "h2", "h3", "h4", "h5", "p", "div") && strings.Contains(ownText(n), kw)
		})
		found := false
		for _, header := range headers {
			container := nextSiblingDiv(header)
			if container == nil {
				continue
			}
			entries := descendants(container, func(n *html.Node) bool {
				return classContains(n, "MuiTypography-body1") || classContains(n, "MuiChip-label")
			})
			for _, entry := range entries {
				t := normalize.CleanText(text(entry))
				if t == "" || seen[t] || isKeyword[t] || len([]rune(t)) >= 40 {
					continue
				}
				seen[t] = true
				items = append(items, t)
				found = true
			}
			if found {
				break
			}
		}
	}

	if len(items) > model.MaxAttributeSlots {
		items = items[:model.MaxAttributeSlots]
	}
	return items
}
