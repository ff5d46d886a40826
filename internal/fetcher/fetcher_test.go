package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafgrid/catalog-sync/internal/resilience"
)

func testFetcher() *HTTPFetcher {
	return New(Options{
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	})
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "catalog-sync/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	body, err := testFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
}

func TestFetch_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	body, err := testFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_PermanentStatusFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "404 must not be retried")
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownloadImage_WritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media/amnesia.jpg", r.URL.Path)
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	store := NewAssetStore(testFetcher(), dir, srv.URL)

	path, err := store.DownloadImage(context.Background(), "/media/amnesia.jpg", "Amnesia Haze")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Amnesia Haze.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestDownloadImage_SkipsExistingFile(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	dir := t.TempDir()
	existing := filepath.Join(dir, "Amnesia Haze.jpg")
	require.NoError(t, os.WriteFile(existing, []byte("cached"), 0o644))

	store := NewAssetStore(testFetcher(), dir, srv.URL)
	path, err := store.DownloadImage(context.Background(), "/media/amnesia.jpg", "Amnesia Haze")
	require.NoError(t, err)
	assert.Equal(t, existing, path)
	assert.Zero(t, calls.Load(), "cached image must not be fetched again")
}

func TestDownloadImage_SanitizesFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	store := NewAssetStore(testFetcher(), dir, srv.URL)

	path, err := store.DownloadImage(context.Background(), "/media/x.jpg", `Haze 20:1 "Special"`)
	require.NoError(t, err)
	assert.NotContains(t, filepath.Base(path), ":")
	assert.NotContains(t, filepath.Base(path), `"`)
}

func TestDownloadImage_EmptyInputsAreNoOps(t *testing.T) {
	store := NewAssetStore(testFetcher(), t.TempDir(), "https://shop.example")

	path, err := store.DownloadImage(context.Background(), "", "Amnesia Haze")
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = store.DownloadImage(context.Background(), "/media/x.jpg", "")
	require.NoError(t, err)
	assert.Empty(t, path)
}
