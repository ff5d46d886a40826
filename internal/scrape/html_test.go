package scrape

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	pages map[string]string
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.pages[url]), nil
}

const detailPage = `<!DOCTYPE html>
<html><body>
<nav>
  <ol>
    <li class="MuiBreadcrumbs-li"><p>Start</p></li>
    <li class="MuiBreadcrumbs-li"><p>Blüten</p></li>
    <li class="MuiBreadcrumbs-li"><p>Amnesia Haze 22/1</p></li>
  </ol>
</nav>
<h1>Amnesia Haze 22/1 AMH</h1>
<div>
  <span>Im Sortiment von</span>
  <a href="/brand/acme"><p>Acme Pharma GmbH</p></a>
</div>
<div><img src="https://flagcdn.com/de.svg"/>Deutschland</div>
<svg data-testid="NotIrradiatedIcon"></svg>
<div>
  <p>THC</p><p>22,5 %</p>
  <p>CBD</p><p>&lt;1 %</p>
</div>
<span class="MuiChip-label">Sativa-Hybrid</span>
<h3>Über diesen Strain</h3>
<div><a href="/strain/amnesia-haze">Amnesia Haze</a></div>
<div class="MuiGrid-item">
  <img src="/icons/zoom.svg"/>
  <img src="https://assets.shop.example/products/amnesia.jpg"/>
</div>
<h4>Effekte</h4>
<div>
  <span class="MuiChip-label">Entspannend</span>
  <span class="MuiChip-label">Euphorisch</span>
  <span class="MuiChip-label">Kreativ</span>
  <span class="MuiChip-label">Schläfrig</span>
</div>
<h4>Geschmack</h4>
<div>
  <p class="MuiTypography-body1">Zitrus</p>
  <p class="MuiTypography-body1">Zitrus</p>
  <p class="MuiTypography-body1">Erdig</p>
</div>
<h4>Terpene</h4>
<div>
  <span class="MuiChip-label">Myrcen</span>
</div>
</body></html>`

func TestScrapeDetail_ExtractsAllFields(t *testing.T) {
	url := "https://shop.example/product/amnesia"
	s := NewHTMLScraper(&stubFetcher{pages: map[string]string{url: detailPage}})

	r, err := s.ScrapeDetail(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, url, r.URL)
	assert.Equal(t, "Amnesia Haze 22/1 AMH", r.Name)
	assert.Equal(t, "Amnesia Haze 22/1", r.DisplayName, "display name comes from the last breadcrumb")
	assert.Equal(t, "Acme Pharma GmbH", r.Manufacturer)
	assert.Equal(t, "Deutschland", r.Origin)
	assert.Equal(t, "Unbestrahlt", r.Irradiation)
	assert.Equal(t, "23", r.THC)
	assert.Equal(t, "1", r.CBD)
	assert.Equal(t, "Sativa-Hybrid", r.Genetic)
	assert.Equal(t, "Amnesia Haze", r.Cultivar)
	assert.Equal(t, "Blüten", r.ProductGroup)
	assert.Equal(t, "https://assets.shop.example/products/amnesia.jpg", r.ImageURL)
}

func TestScrapeDetail_AttributeListsCappedAndDeduplicated(t *testing.T) {
	url := "https://shop.example/product/amnesia"
	s := NewHTMLScraper(&stubFetcher{pages: map[string]string{url: detailPage}})

	r, err := s.ScrapeDetail(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, []string{"Entspannend", "Euphorisch", "Kreativ"}, r.Effects, "capped at three slots")
	assert.Equal(t, []string{"Zitrus", "Erdig"}, r.Aromas, "duplicates dropped")
	assert.Equal(t, []string{"Myrcen"}, r.Terpenes)
	assert.Empty(t, r.MedicalUses)
}

func TestScrapeDetail_ShowAllButtonIsNotAnAttribute(t *testing.T) {
	url := "https://shop.example/product/showall"
	page := `<html><body>
<h1>X</h1>
<h4>Effekte</h4>
<div>
  <span class="MuiChip-label">Entspannend</span>
  <span class="MuiChip-label">Alle anzeigen</span>
</div>
</body></html>`
	s := NewHTMLScraper(&stubFetcher{pages: map[string]string{url: page}})

	r, err := s.ScrapeDetail(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, []string{"Entspannend"}, r.Effects, "show-all button caption must be dropped")
}

func TestScrapeDetail_IrradiatedMarker(t *testing.T) {
	url := "https://shop.example/product/x"
	page := `<html><body><h1>X</h1><svg data-testid="IrradiatedIcon"></svg></body></html>`
	s := NewHTMLScraper(&stubFetcher{pages: map[string]string{url: page}})

	r, err := s.ScrapeDetail(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "Bestrahlt", r.Irradiation)
}

func TestScrapeDetail_MissingMarkupYieldsEmptyFields(t *testing.T) {
	url := "https://shop.example/product/sparse"
	page := `<html><body><p>nothing to see</p></body></html>`
	s := NewHTMLScraper(&stubFetcher{pages: map[string]string{url: page}})

	r, err := s.ScrapeDetail(context.Background(), url)
	require.NoError(t, err)
	assert.Empty(t, r.Name)
	assert.Empty(t, r.Manufacturer)
	assert.Empty(t, r.THC)
	assert.Empty(t, r.Irradiation)
	assert.Empty(t, r.Effects)
	assert.Equal(t, "Blüten", r.ProductGroup)
}

func TestScrapeDetail_BreadcrumbFallsBackToName(t *testing.T) {
	url := "https://shop.example/product/nocrumbs"
	page := `<html><body><h1>Plain Product</h1></body></html>`
	s := NewHTMLScraper(&stubFetcher{pages: map[string]string{url: page}})

	r, err := s.ScrapeDetail(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "Plain Product", r.DisplayName)
}
