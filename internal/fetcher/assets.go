package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leafgrid/catalog-sync/internal/normalize"
)

// AssetStore downloads product images into a local directory. Filenames are
// derived from the product name so reruns find existing files and skip the
// download.
type AssetStore struct {
	fetcher *HTTPFetcher
	dir     string
	baseURL string
}

// NewAssetStore creates an AssetStore writing into dir. Relative image URLs
// are resolved against baseURL.
func NewAssetStore(fetcher *HTTPFetcher, dir, baseURL string) *AssetStore {
	return &AssetStore{
		fetcher: fetcher,
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// DownloadImage fetches the product image and returns the local path. An
// already existing file is returned as-is without a network round trip.
func (a *AssetStore) DownloadImage(ctx context.Context, imageURL, productName string) (string, error) {
	if imageURL == "" || productName == "" {
		return "", nil
	}

	name := normalize.SanitizeFilename(productName)
	if name == "" {
		return "", nil
	}
	path := filepath.Join(a.dir, name+".jpg")

	if _, err := os.Stat(path); err == nil {
		zap.L().Debug("image already downloaded", zap.String("path", path))
		return path, nil
	}

	if strings.HasPrefix(imageURL, "/") {
		imageURL = a.baseURL + imageURL
	}

	body, err := a.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return "", eris.Wrapf(err, "assets: download %s", imageURL)
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "assets: create dir %s", a.dir)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", eris.Wrapf(err, "assets: write %s", path)
	}

	zap.L().Info("downloaded product image",
		zap.String("product", productName),
		zap.String("path", path),
	)
	return path, nil
}
