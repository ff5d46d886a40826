package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafgrid/catalog-sync/internal/model"
	"github.com/leafgrid/catalog-sync/internal/normalize"
	"github.com/leafgrid/catalog-sync/internal/queue"
	"github.com/leafgrid/catalog-sync/pkg/erp"
)

type fakeCatalog struct {
	authErr  error
	items    []erp.Item
	itemsErr error
}

func (f *fakeCatalog) Authenticate(context.Context) error { return f.authErr }

func (f *fakeCatalog) Items(context.Context) ([]erp.Item, error) { return f.items, f.itemsErr }

type fakeLinks struct {
	links []string
	err   error
	calls int
}

func (f *fakeLinks) Links(context.Context, string) ([]string, error) {
	f.calls++
	return f.links, f.err
}

type fakeScraper struct {
	records map[string]*model.Record
	errs    map[string]error
	calls   []string
}

func (f *fakeScraper) ScrapeDetail(_ context.Context, url string) (*model.Record, error) {
	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	if r, ok := f.records[url]; ok {
		cp := *r
		return &cp, nil
	}
	return &model.Record{URL: url}, nil
}

type fakeImages struct {
	path string
	err  error
}

func (f *fakeImages) DownloadImage(context.Context, string, string) (string, error) {
	return f.path, f.err
}

func testStore(t *testing.T) queue.Store {
	t.Helper()
	s, err := queue.NewSQLite(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func record(url, name, cultivar string) *model.Record {
	return &model.Record{
		URL:          url,
		Name:         name,
		DisplayName:  name,
		Manufacturer: "Acme Pharma",
		THC:          "22",
		Cultivar:     cultivar,
	}
}

func TestRun_NewProductQueuedWithMatch(t *testing.T) {
	store := testStore(t)
	url := "https://shop.example/product/amnesia"

	o := New(Options{
		Store: store,
		Links: &fakeLinks{links: []string{url}},
		Scraper: &fakeScraper{records: map[string]*model.Record{
			url: record(url, "Amnesia Haze", "Amnesia Haze"),
		}},
		Catalog: &fakeCatalog{items: []erp.Item{
			{Number: "100.3001", DisplayName: "Amnesia Haze - Amnesia Haze"},
		}},
		ListingURL: "https://shop.example/product",
	})

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, model.OutcomePersisted, report.Items[0].Outcome)
	assert.Equal(t, model.StatusDuplicate, report.Items[0].Status)
	assert.NotEmpty(t, report.ID)

	entry, err := store.GetByURL(context.Background(), url)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Amnesia Haze", entry.ProductName, "the row keeps the raw scraped name")
	assert.Equal(t, model.StatusDuplicate, entry.Status)
	assert.Equal(t, "Found: Amnesia Haze - Amnesia Haze (100.3001)", entry.MatchInfo,
		"matching runs against the cultivar-composed name")
	assert.NotEmpty(t, entry.ProductHash)
}

func TestRun_UnmatchedProductIsReady(t *testing.T) {
	store := testStore(t)
	url := "https://shop.example/product/novel"

	o := New(Options{
		Store: store,
		Links: &fakeLinks{links: []string{url}},
		Scraper: &fakeScraper{records: map[string]*model.Record{
			url: record(url, "Completely Novel Product", ""),
		}},
		Catalog:    &fakeCatalog{items: []erp.Item{{Number: "100.1", DisplayName: "Unrelated Thing"}}},
		ListingURL: "https://shop.example/product",
	})

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, report.Items[0].Status)

	entry, err := store.GetByURL(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "New", entry.MatchInfo)
}

func TestRun_KnownURLSkippedWithoutScraping(t *testing.T) {
	store := testStore(t)
	url := "https://shop.example/product/amnesia"
	require.NoError(t, store.Upsert(context.Background(), &model.QueueEntry{
		URL: url, ProductHash: "h", ProductName: "Amnesia Haze",
		Status: model.StatusReady, Scraped: model.Record{Name: "Amnesia Haze"},
	}))

	scraper := &fakeScraper{}
	o := New(Options{
		Store:      store,
		Links:      &fakeLinks{links: []string{url}},
		Scraper:    scraper,
		Catalog:    &fakeCatalog{},
		ListingURL: "https://shop.example/product",
	})

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, model.OutcomeSkipped, report.Items[0].Outcome)
	assert.Equal(t, model.StatusReady, report.Items[0].Status)
	assert.Empty(t, scraper.calls, "known URLs must not be scraped again")
}

func TestRun_AuthFailureAbortsBeforeDiscovery(t *testing.T) {
	links := &fakeLinks{links: []string{"https://shop.example/product/x"}}
	o := New(Options{
		Store:      testStore(t),
		Links:      links,
		Scraper:    &fakeScraper{},
		Catalog:    &fakeCatalog{authErr: eris.New("invalid client credentials")},
		ListingURL: "https://shop.example/product",
	})

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, links.calls, "no discovery after failed authentication")
}

func TestRun_PerItemFailureIsolation(t *testing.T) {
	store := testStore(t)
	urls := []string{
		"https://shop.example/product/one",
		"https://shop.example/product/two",
		"https://shop.example/product/three",
	}

	o := New(Options{
		Store: store,
		Links: &fakeLinks{links: urls},
		Scraper: &fakeScraper{
			records: map[string]*model.Record{
				urls[0]: record(urls[0], "Product One", ""),
				urls[2]: record(urls[2], "Product Three", ""),
			},
			errs: map[string]error{urls[1]: eris.New("detail page timed out")},
		},
		Catalog:    &fakeCatalog{},
		ListingURL: "https://shop.example/product",
	})

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	persisted, skipped, failed := report.Counts()
	assert.Equal(t, 2, persisted)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 1, failed)
	assert.Equal(t, model.OutcomeFailed, report.Items[1].Outcome)
	assert.Contains(t, report.Items[1].Error, "timed out")

	for _, url := range []string{urls[0], urls[2]} {
		entry, err := store.GetByURL(context.Background(), url)
		require.NoError(t, err)
		assert.NotNil(t, entry, "failure of one link must not block the others")
	}
}

func TestRun_EmptyNameSkipped(t *testing.T) {
	store := testStore(t)
	url := "https://shop.example/product/blank"

	o := New(Options{
		Store:      store,
		Links:      &fakeLinks{links: []string{url}},
		Scraper:    &fakeScraper{records: map[string]*model.Record{url: {URL: url}}},
		Catalog:    &fakeCatalog{},
		ListingURL: "https://shop.example/product",
	})

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipped, report.Items[0].Outcome)

	entry, err := store.GetByURL(context.Background(), url)
	require.NoError(t, err)
	assert.Nil(t, entry, "nameless scrapes are not queued")
}

func TestRun_ImageFailureDoesNotFailItem(t *testing.T) {
	store := testStore(t)
	url := "https://shop.example/product/amnesia"
	rec := record(url, "Amnesia Haze", "")
	rec.ImageURL = "/media/amnesia.jpg"

	o := New(Options{
		Store:      store,
		Links:      &fakeLinks{links: []string{url}},
		Scraper:    &fakeScraper{records: map[string]*model.Record{url: rec}},
		Catalog:    &fakeCatalog{},
		Images:     &fakeImages{err: eris.New("cdn unreachable")},
		ListingURL: "https://shop.example/product",
	})

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePersisted, report.Items[0].Outcome)

	entry, err := store.GetByURL(context.Background(), url)
	require.NoError(t, err)
	assert.Empty(t, entry.Scraped.ImagePath)
}

func TestRun_ImagePathStoredOnSuccess(t *testing.T) {
	store := testStore(t)
	url := "https://shop.example/product/amnesia"
	rec := record(url, "Amnesia Haze", "")
	rec.ImageURL = "/media/amnesia.jpg"

	o := New(Options{
		Store:      store,
		Links:      &fakeLinks{links: []string{url}},
		Scraper:    &fakeScraper{records: map[string]*model.Record{url: rec}},
		Catalog:    &fakeCatalog{},
		Images:     &fakeImages{path: "/data/images/Amnesia Haze.jpg"},
		ListingURL: "https://shop.example/product",
	})

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	entry, err := store.GetByURL(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "/data/images/Amnesia Haze.jpg", entry.Scraped.ImagePath)
}

func TestRun_MappingsRewriteBeforeMatching(t *testing.T) {
	store := testStore(t)
	url := "https://shop.example/product/amnesia"

	o := New(Options{
		Store: store,
		Links: &fakeLinks{links: []string{url}},
		Scraper: &fakeScraper{records: map[string]*model.Record{
			url: record(url, "Amnesia Haze", ""),
		}},
		Catalog: &fakeCatalog{},
		Mappings: normalize.Mappings{Fields: map[string][]normalize.Rule{
			"manufacturer": {{From: "Acme Pharma", To: "ACME Pharmaceuticals GmbH"}},
		}},
		ListingURL: "https://shop.example/product",
	})

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	entry, err := store.GetByURL(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "ACME Pharmaceuticals GmbH", entry.Scraped.Manufacturer)
}
