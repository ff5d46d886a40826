// Package erp provides OAuth2-authenticated access to the merchandise
// management API: the item catalog snapshot used for duplicate matching,
// item creation, and product image upload.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leafgrid/catalog-sync/internal/resilience"
)

// Item is a catalog entry as the matcher and the importer see it.
type Item struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	DisplayName string `json:"displayName"`
}

// CreateItemRequest carries the fields for a new catalog item.
type CreateItemRequest struct {
	DisplayName  string `json:"displayName"`
	Description  string `json:"description,omitempty"`
	ItemCategory string `json:"itemCategoryCode,omitempty"`
}

// Client defines the catalog operations used by the pipeline.
type Client interface {
	Authenticate(ctx context.Context) error
	Items(ctx context.Context) ([]Item, error)
	CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error)
	HasImage(ctx context.Context, itemID string) (bool, error)
	UploadImage(ctx context.Context, itemID string, image []byte) error
}

// Config holds connection settings for the catalog API.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
	Retry        resilience.RetryConfig
	Breaker      resilience.CircuitBreakerConfig
}

type httpClient struct {
	cfg     Config
	client  *http.Client
	breaker *resilience.CircuitBreaker

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a Client for the configured catalog API.
func NewClient(cfg Config) Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &httpClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewCircuitBreaker(cfg.Breaker),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate performs the client-credentials grant and caches the token.
// A run must not start when this fails.
func (c *httpClient) Authenticate(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	if c.cfg.Scope != "" {
		form.Set("scope", c.cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "erp: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "erp: token request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return eris.Errorf("erp: token request failed: %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return eris.Wrap(err, "erp: decode token response")
	}
	if tok.AccessToken == "" {
		return eris.New("erp: empty access token")
	}

	c.mu.Lock()
	c.accessToken = tok.AccessToken
	// Renew a minute early so in-flight requests never carry a stale token.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	c.mu.Unlock()

	zap.L().Info("erp authentication succeeded")
	return nil
}

func (c *httpClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	valid := c.accessToken != "" && time.Now().Before(c.tokenExpiry)
	tok := c.accessToken
	c.mu.Unlock()
	if valid {
		return tok, nil
	}
	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, nil
}

// do issues one authenticated request through the circuit breaker and the
// retry policy. Transient statuses are retried, anything else surfaces.
func (c *httpClient) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, int, error) {
	type result struct {
		body   []byte
		status int
	}
	res, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (result, error) {
		return resilience.DoVal(ctx, c.cfg.Retry, func(ctx context.Context) (result, error) {
			tok, err := c.token(ctx)
			if err != nil {
				return result{}, err
			}

			var reader io.Reader
			if body != nil {
				reader = bytes.NewReader(body)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
			if err != nil {
				return result{}, eris.Wrapf(err, "erp: create request %s %s", method, path)
			}
			req.Header.Set("Authorization", "Bearer "+tok)
			req.Header.Set("Accept", "application/json")
			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}
			if method == http.MethodPatch {
				req.Header.Set("If-Match", "*")
			}

			resp, err := c.client.Do(req)
			if err != nil {
				return result{}, eris.Wrapf(err, "erp: %s %s", method, path)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return result{}, eris.Wrapf(err, "erp: read response %s %s", method, path)
			}
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return result{}, resilience.NewTransientError(
					eris.Errorf("erp: %s %s: http %d", method, path, resp.StatusCode), resp.StatusCode)
			}
			return result{body: data, status: resp.StatusCode}, nil
		})
	})
	if err != nil {
		return nil, 0, err
	}
	return res.body, res.status, nil
}

type itemsPage struct {
	Value    []Item `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// Items returns the full catalog snapshot, following pagination links.
func (c *httpClient) Items(ctx context.Context) ([]Item, error) {
	path := "/items?$select=id,number,displayName"
	var items []Item
	for path != "" {
		body, status, err := c.do(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, eris.Errorf("erp: list items: http %d", status)
		}
		var page itemsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, eris.Wrap(err, "erp: decode items page")
		}
		items = append(items, page.Value...)

		path = ""
		if page.NextLink != "" {
			// nextLink is absolute; only the path+query below BaseURL matters.
			if rest, ok := strings.CutPrefix(page.NextLink, c.cfg.BaseURL); ok {
				path = rest
			}
		}
	}
	zap.L().Info("loaded catalog snapshot", zap.Int("items", len(items)))
	return items, nil
}

func (c *httpClient) CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "erp: marshal item")
	}
	body, status, err := c.do(ctx, http.MethodPost, "/items", payload, "application/json")
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, eris.Errorf("erp: create item %q: http %d: %s", req.DisplayName, status, string(body))
	}

	var item Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, eris.Wrap(err, "erp: decode created item")
	}
	zap.L().Info("created catalog item",
		zap.String("number", item.Number),
		zap.String("display_name", item.DisplayName),
	)
	return &item, nil
}

type picture struct {
	ContentType string `json:"contentType"`
}

// HasImage reports whether the item already carries a picture. New items
// never get their image overwritten by the importer.
func (c *httpClient) HasImage(ctx context.Context, itemID string) (bool, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/items("+itemID+")/picture", nil, "")
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if status != http.StatusOK {
		return false, eris.Errorf("erp: get picture %s: http %d", itemID, status)
	}
	var pic picture
	if err := json.Unmarshal(body, &pic); err != nil {
		return false, eris.Wrap(err, "erp: decode picture")
	}
	return pic.ContentType != "", nil
}

func (c *httpClient) UploadImage(ctx context.Context, itemID string, image []byte) error {
	body, status, err := c.do(ctx, http.MethodPatch,
		"/items("+itemID+")/picture/pictureContent", image, "image/jpeg")
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return eris.Errorf("erp: upload picture %s: http %d: %s", itemID, status, string(body))
	}
	zap.L().Info("uploaded item image", zap.String("item_id", itemID))
	return nil
}
