package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/gpack/pkg/buildinfo"
	"github.com/matzehuels/gpack/pkg/cache"
	"github.com/matzehuels/gpack/pkg/errors"
	"github.com/matzehuels/gpack/pkg/httputil"
	"github.com/matzehuels/gpack/pkg/observability"
)

const (
	// DefaultBaseURL is the public npm registry.
	DefaultBaseURL = "https://registry.npmjs.org"

	// DefaultCacheTTL is used when Options.CacheTTL is zero.
	DefaultCacheTTL = 5 * time.Minute

	httpTimeout   = 2 * time.Minute
	retryAttempts = 3
)

// Options configures a [Client]. Zero values select defaults.
type Options struct {
	BaseURL    string        // registry base URL
	WorkDir    string        // base for relative file: paths
	Cache      cache.Cache   // metadata cache; nil disables caching
	CacheTTL   time.Duration // metadata cache lifetime
	RetryDelay time.Duration // initial backoff for metadata retries, default 1s
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client resolves package metadata and downloads tarballs.
// It is safe for concurrent use.
type Client struct {
	http       *http.Client
	cache      cache.Cache
	ttl        time.Duration
	retryDelay time.Duration
	baseURL    string
	workDir    string
	headers    map[string]string
	logger     *log.Logger
}

// NewClient creates a Client. Cache entries are scoped to the base URL so
// several registries can share one backend.
func NewClient(opts Options) *Client {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: httpTimeout}
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Client{
		http:       hc,
		cache:      cache.Scoped(opts.Cache, base+"|"),
		ttl:        ttl,
		retryDelay: delay,
		baseURL:    base,
		workDir:    opts.WorkDir,
		headers: map[string]string{
			"User-Agent":  buildinfo.UserAgent(),
			"Accept":      "application/json",
			"npm-session": uuid.NewString(),
		},
		logger: logger,
	}
}

// BaseURL returns the registry base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Close releases the metadata cache.
func (c *Client) Close() error { return c.cache.Close() }

func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", url)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", url))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))
	return resp, nil
}

// checkStatus maps a registry response status to a coded error.
// 5xx responses are marked retryable.
func checkStatus(code int, what string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodePackageNotFound, "%s not found in registry", what)
	case code >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "registry returned %d for %s", code, what))
	default:
		return errors.New(errors.ErrCodeNetwork, "registry returned %d for %s", code, what)
	}
}

// unwrapRetryable strips the retry marker so callers see the coded error.
func unwrapRetryable(err error) error {
	if r, ok := err.(*httputil.RetryableError); ok {
		return r.Err
	}
	return err
}

func describe(name, version string) string {
	return fmt.Sprintf("%s@%s", name, version)
}
