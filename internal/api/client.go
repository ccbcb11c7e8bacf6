// Package api contains HTTP clients for the modpack platforms.
// Every client shares one retrying transport and may read through a response cache.
package api

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

const userAgent = "packkeeper/1.0.0 (github.com/aayushdutt/packkeeper)"

// ErrNotFound is returned for HTTP 404 responses.
var ErrNotFound = errors.New("not found")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Is makes 404 responses match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// ResponseCache stores raw response bodies. *cache.Cache satisfies it.
type ResponseCache interface {
	Get(ctx context.Context, key string, maxStale time.Duration) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
}

// Options configure a platform client. Zero values fall back to the platform
// defaults and a shared retrying transport.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      ResponseCache
	MaxStale   time.Duration
	Logger     *slog.Logger
}

// NewHTTPClient returns a client that retries transient failures
func NewHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil // Silence default logging

	retryClient.HTTPClient.Transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	retryClient.HTTPClient.Timeout = 30 * time.Second

	return retryClient.StandardClient()
}

// client is the plumbing every platform client embeds
type client struct {
	name     string
	rc       *resty.Client
	cache    ResponseCache
	maxStale time.Duration
	logger   *slog.Logger
}

func newClient(name, defaultBaseURL string, defaultMaxStale time.Duration, opts Options) *client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = NewHTTPClient()
	}
	base := opts.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	maxStale := opts.MaxStale
	if maxStale == 0 {
		maxStale = defaultMaxStale
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rc := resty.NewWithClient(hc).
		SetBaseURL(base).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &client{
		name:     name,
		rc:       rc,
		cache:    opts.Cache,
		maxStale: maxStale,
		logger:   logger.With(slog.String("platform", name)),
	}
}

// get fetches path and decodes the JSON body into out
func (c *client) get(ctx context.Context, path string, query url.Values, out any) error {
	key := c.name + ":GET " + path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	if c.fromCache(ctx, key, out) {
		return nil
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(path)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	return c.decode(ctx, key, resp, out)
}

// post sends body as JSON and decodes the JSON response into out
func (c *client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	sum := sha1.Sum(payload)
	key := c.name + ":POST " + path + "#" + hex.EncodeToString(sum[:])
	if c.fromCache(ctx, key, out) {
		return nil
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(path)
	if err != nil {
		return fmt.Errorf("posting %s: %w", path, err)
	}
	return c.decode(ctx, key, resp, out)
}

func (c *client) decode(ctx context.Context, key string, resp *resty.Response, out any) error {
	if !resp.IsSuccess() {
		return &StatusError{Code: resp.StatusCode(), URL: resp.Request.URL}
	}
	body := resp.Body()
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, body); err != nil {
			c.logger.Warn("could not cache response", slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}

// fromCache decodes a fresh cached body into out. Cache failures count as misses.
func (c *client) fromCache(ctx context.Context, key string, out any) bool {
	if c.cache == nil {
		return false
	}
	body, ok, err := c.cache.Get(ctx, key, c.maxStale)
	if err != nil {
		c.logger.Warn("response cache unavailable", slog.Any("error", err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Debug("discarding undecodable cache entry", slog.String("key", key))
		return false
	}
	return true
}
