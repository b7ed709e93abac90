package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/batchprot/bearer-auth/telemetry"
)

// defaultMaxResponseBytes bounds the key set document. Real key sets are a
// few KB.
const defaultMaxResponseBytes = 1 << 20

// Fetcher retrieves the provider's published key set. It performs exactly
// one HTTP request per Fetch and never retries.
type Fetcher struct {
	url      string
	client   *http.Client
	ttl      time.Duration
	now      func() time.Time
	maxBytes int64
	logger   telemetry.Logger
}

// NewFetcher builds a Fetcher for the given JWKS URL.
//
// Optional options:
//   - WithHTTPClient: custom HTTP client (default: 30s timeout)
//   - WithTTL: freshness of fetched sets (default: DefaultTTL)
//   - WithFetcherClock: clock stamped as FetchedAt
//   - WithMaxResponseBytes: response size limit (default: 1 MiB)
//   - WithFetcherLogger: logger
func NewFetcher(jwksURL string, opts ...FetcherOption) (*Fetcher, error) {
	u, err := url.Parse(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWKS URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid JWKS URL %q: scheme must be http or https", jwksURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid JWKS URL %q: missing host", jwksURL)
	}

	f := &Fetcher{
		url:      u.String(),
		client:   &http.Client{Timeout: 30 * time.Second},
		ttl:      DefaultTTL,
		now:      time.Now,
		maxBytes: defaultMaxResponseBytes,
		logger:   telemetry.NopLogger{},
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return f, nil
}

// URL returns the JWKS URL the fetcher requests.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch performs a single GET of the key set and parses it. FetchedAt is
// taken when the request starts.
func (f *Fetcher) Fetch(ctx context.Context) (*KeySet, error) {
	fetchedAt := f.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{Kind: ErrNetwork, URL: f.url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	f.logger.Info("fetching JWKS from auth provider", "url", f.url)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error("JWKS request failed", "url", f.url, "error", err)
		return nil, &FetchError{Kind: ErrNetwork, URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		f.logger.Error("JWKS request returned error status", "url", f.url, "status", resp.StatusCode)
		return nil, &FetchError{Kind: ErrUpstream, URL: f.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &FetchError{Kind: ErrNetwork, URL: f.url, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &FetchError{
			Kind: ErrMalformedResponse,
			URL:  f.url,
			Err:  fmt.Errorf("response exceeds %d bytes", f.maxBytes),
		}
	}

	set, skipped, err := parseKeySet(body, fetchedAt, f.ttl)
	if err != nil {
		f.logger.Error("failed to parse JWKS", "url", f.url, "error", err)
		return nil, &FetchError{Kind: ErrMalformedResponse, URL: f.url, Err: err}
	}
	if skipped > 0 {
		f.logger.Warn("ignored unusable keys in JWKS", "url", f.url, "skipped", skipped)
	}

	f.logger.Info("JWKS fetched", "url", f.url, "keys", set.Len(), "expires_at", set.ExpiresAt)
	return set, nil
}
