// Package scholar looks up author reputation metrics from the Semantic
// Scholar Graph API.
package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/resilience"
)

const (
	defaultBaseURL = "https://api.semanticscholar.org/graph/v1"
	defaultTimeout = 30 * time.Second

	authorFields = "name,hIndex,citationCount,affiliations"
)

// Author holds the reputation signals returned for one author.
type Author struct {
	Name        string
	HIndex      int
	Citations   int
	Affiliation string
}

// Client performs author lookups.
type Client interface {
	// SearchAuthor returns the best match for name. A missing profile is a
	// permanent failure reported via resilience.ErrNotFound; transport and
	// server errors are wrapped as resilience.TransientError.
	SearchAuthor(ctx context.Context, name string) (*Author, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithAPIKey sets the optional x-api-key header.
func WithAPIKey(key string) Option {
	return func(c *httpClient) { c.apiKey = key }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithProxyURL routes lookups through the given HTTP proxy. An unparseable
// URL falls back to a direct connection; lookups work either way.
func WithProxyURL(raw string) Option {
	return func(c *httpClient) {
		if raw == "" {
			return
		}
		proxyURL, err := url.Parse(raw)
		if err != nil {
			zap.L().Warn("scholar: bad proxy url, using direct connection",
				zap.String("proxy", raw),
				zap.Error(err),
			)
			return
		}
		c.http.Transport = &http.Transport{
			Proxy:               http.ProxyURL(proxyURL),
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		}
		zap.L().Info("scholar: using proxy", zap.String("proxy", proxyURL.Host))
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a Semantic Scholar API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchResponse struct {
	Total int            `json:"total"`
	Data  []searchResult `json:"data"`
}

type searchResult struct {
	AuthorID      string   `json:"authorId"`
	Name          string   `json:"name"`
	HIndex        int      `json:"hIndex"`
	CitationCount int      `json:"citationCount"`
	Affiliations  []string `json:"affiliations"`
}

func (c *httpClient) SearchAuthor(ctx context.Context, name string) (*Author, error) {
	endpoint := fmt.Sprintf("%s/author/search?query=%s&fields=%s&limit=1",
		c.baseURL, url.QueryEscape(name), url.QueryEscape(authorFields))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scholar: create request")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "scholar: search author"), 0)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, eris.Wrapf(resilience.ErrNotFound, "scholar: author %q", name)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("scholar: status %d searching %q", resp.StatusCode, name),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("scholar: unexpected status %d searching %q", resp.StatusCode, name)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "scholar: read response"), 0)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "scholar: decode response"), 0)
	}
	if len(parsed.Data) == 0 {
		return nil, eris.Wrapf(resilience.ErrNotFound, "scholar: author %q", name)
	}

	best := parsed.Data[0]
	author := &Author{
		Name:      best.Name,
		HIndex:    best.HIndex,
		Citations: best.CitationCount,
	}
	if len(best.Affiliations) > 0 {
		author.Affiliation = best.Affiliations[0]
	}
	return author, nil
}
