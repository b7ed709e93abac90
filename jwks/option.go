package jwks

import (
	"errors"
	"net/http"
	"time"

	"github.com/batchprot/bearer-auth/telemetry"
)

// ============================================================================
// Fetcher Options
// ============================================================================

// FetcherOption is how options for the Fetcher are set up.
type FetcherOption func(*Fetcher) error

// WithHTTPClient sets a custom HTTP client for the Fetcher.
// If not specified, a default client with 30s timeout is used.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		f.client = c
		return nil
	}
}

// WithTTL sets how long a fetched key set is considered fresh.
// If not specified, defaults to 60 minutes.
func WithTTL(ttl time.Duration) FetcherOption {
	return func(f *Fetcher) error {
		if ttl <= 0 {
			return errors.New("TTL must be positive")
		}
		f.ttl = ttl
		return nil
	}
}

// WithFetcherClock sets the clock used to stamp FetchedAt.
func WithFetcherClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		f.now = now
		return nil
	}
}

// WithMaxResponseBytes limits the size of the key set document.
func WithMaxResponseBytes(n int64) FetcherOption {
	return func(f *Fetcher) error {
		if n <= 0 {
			return errors.New("max response bytes must be positive")
		}
		f.maxBytes = n
		return nil
	}
}

// WithFetcherLogger sets the logger for the Fetcher.
func WithFetcherLogger(l telemetry.Logger) FetcherOption {
	return func(f *Fetcher) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		f.logger = l
		return nil
	}
}

// ============================================================================
// Resolver Options
// ============================================================================

// ResolverOption is how options for the Resolver are set up.
type ResolverOption func(*Resolver) error

// WithFetchTimeout bounds a single fetch started by the Resolver. Exceeding
// it is reported as ErrNetwork.
func WithFetchTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		r.fetchTimeout = d
		return nil
	}
}

// WithResolverLogger sets the logger for the Resolver.
func WithResolverLogger(l telemetry.Logger) ResolverOption {
	return func(r *Resolver) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		r.logger = l
		return nil
	}
}

// WithResolverMetrics sets the metrics sink for cache and fetch counters.
func WithResolverMetrics(m telemetry.Metrics) ResolverOption {
	return func(r *Resolver) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		r.metrics = m
		return nil
	}
}

// WithResolverTracer sets the tracer used to record fetch spans.
func WithResolverTracer(t telemetry.Tracer) ResolverOption {
	return func(r *Resolver) error {
		if t == nil {
			return errors.New("tracer cannot be nil")
		}
		r.tracer = t
		return nil
	}
}
