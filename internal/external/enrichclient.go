package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

// maxErrorBodySize limits how much of an error response body is read,
// bounding memory use on an unexpectedly large upstream error page.
const maxErrorBodySize = 64 * 1024

// Provider identifies which enrichment source a lookup targets.
type Provider string

const (
	ProviderTMDB          Provider = "tmdb"
	ProviderOpenSubtitles Provider = "opensubtitles"
)

// Config configures one provider's client.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestsPerMin int
	CacheTTL       time.Duration
	CacheCapacity  int
	Timeout        time.Duration
}

// EnrichClient is a cached, quota-limited, circuit-broken HTTP client for
// a single enrichment provider. A rate-limited or erroring upstream opens
// the breaker; open-breaker and quota-exhausted calls both surface as a
// retriable catalogerr.Conflict rather than an internal error, since the
// caller (the assistant's tool loop) can reasonably retry later.
type EnrichClient struct {
	provider Provider
	cfg      Config
	http     *http.Client
	cache    *ttlCache
	quota    *quota
	breaker  *gobreaker.CircuitBreaker[[]byte]
}

// NewEnrichClient builds a client for provider using cfg.
func NewEnrichClient(provider Provider, cfg Config) *EnrichClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	settings := gobreaker.Settings{
		Name:        string(provider),
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &EnrichClient{
		provider: provider,
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		cache:    newTTLCache(cfg.CacheCapacity, cfg.CacheTTL),
		quota:    newQuota(cfg.RequestsPerMin),
		breaker:  gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// Lookup fetches path+params from the provider, serving a cached response
// when available and otherwise routing the call through the quota gate
// and circuit breaker.
func (c *EnrichClient) Lookup(ctx context.Context, path string, params url.Values) ([]byte, error) {
	key := cacheKey(path, params)
	now := time.Now()

	if body, ok := c.cache.get(key, now); ok {
		return body, nil
	}

	if !c.quota.allow() {
		return nil, catalogerr.Conflict(fmt.Sprintf("%s request quota exhausted, retry later", c.provider))
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, path, params)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, catalogerr.Conflict(fmt.Sprintf("%s is temporarily unavailable, retry later", c.provider))
		}
		if catErr, ok := err.(*catalogerr.Error); ok {
			return nil, catErr
		}
		return nil, catalogerr.Wrap(catalogerr.KindInternal, fmt.Sprintf("%s lookup failed", c.provider), err)
	}

	c.cache.put(key, body, now)
	return body, nil
}

func (c *EnrichClient) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s rate limited (429)", c.provider)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%s returned %d: %s", c.provider, resp.StatusCode, readBodyForError(resp.Body))
	}
	if resp.StatusCode >= 400 {
		return nil, catalogerr.NotFound(fmt.Sprintf("%s: %s", c.provider, readBodyForError(resp.Body)))
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return string(body)
}

func cacheKey(path string, params url.Values) string {
	return path + "?" + params.Encode()
}
