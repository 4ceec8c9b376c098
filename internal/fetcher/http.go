package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RateLimit is requests per second; zero means 20.
	RateLimit float64
}

// HTTPFetcher implements Fetcher over net/http. Each download is a single
// attempt; a failed fetch is reported, never retried.
type HTTPFetcher struct {
	client  *http.Client
	base    *url.URL
	opts    HTTPOptions
	limiter *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher rooted at opts.BaseURL.
func NewHTTPFetcher(opts HTTPOptions) (*HTTPFetcher, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "clustermap/1.0"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse base url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, eris.Errorf("fetcher: base url %q must be http or https", opts.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	burst := int(opts.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		base:    base,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
	}, nil
}

// URL resolves a data path against the base URL.
func (f *HTTPFetcher) URL(path string) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse path %q", path)
	}
	return f.base.ResolveReference(ref).String(), nil
}

// Download fetches path and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	rawURL, err := f.URL(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		zap.L().Warn("fetcher: unexpected status",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}
