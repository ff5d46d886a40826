// Package fetcher downloads storefront pages and linked assets with
// bounded retries and per-host rate limiting.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leafgrid/catalog-sync/internal/resilience"
)

// Options configures the HTTP fetcher.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
	// RateLimiters throttles requests per host. Hosts without an entry get
	// a shared default limiter.
	RateLimiters map[string]*rate.Limiter
}

// HTTPFetcher implements resilient GET requests using net/http.
type HTTPFetcher struct {
	client         *http.Client
	opts           Options
	limiters       map[string]*rate.Limiter
	defaultLimiter *rate.Limiter
}

// New creates an HTTPFetcher with the given options.
func New(opts Options) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "catalog-sync/1.0"
	}
	limiters := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:           opts,
		limiters:       limiters,
		defaultLimiter: rate.NewLimiter(5, 5),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return f.defaultLimiter
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return f.defaultLimiter
}

// Fetch GETs the URL and returns the response body. Transient statuses
// (429, 500, 502, 503, 504) and network timeouts are retried with
// exponential backoff; anything else fails immediately. Fetch is only safe
// for idempotent reads, which is all this pipeline ever issues.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return resilience.DoVal(ctx, f.opts.Retry, func(ctx context.Context) ([]byte, error) {
		if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: create request %s", rawURL)
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
		}
		defer resp.Body.Close()

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			zap.L().Warn("transient http status, will retry",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
			)
			return nil, resilience.NewTransientError(
				eris.Errorf("http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: read body %s", rawURL)
		}
		return body, nil
	})
}
