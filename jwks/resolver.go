package jwks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/batchprot/bearer-auth/telemetry"
)

// KeySetFetcher retrieves a fresh key set. *Fetcher implements it.
type KeySetFetcher interface {
	Fetch(ctx context.Context) (*KeySet, error)
}

// DefaultFetchTimeout bounds a single key set fetch started by the Resolver.
const DefaultFetchTimeout = 10 * time.Second

// Resolver finds the public key for a key id, serving from the Store when
// it can and fetching from the provider on a miss.
type Resolver struct {
	store        *Store
	fetcher      KeySetFetcher
	fetchTimeout time.Duration

	group singleflight.Group

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

// NewResolver builds a Resolver over an owned store and a fetcher.
//
// Optional options:
//   - WithFetchTimeout: bound on one fetch (default: DefaultFetchTimeout)
//   - WithResolverLogger, WithResolverMetrics, WithResolverTracer
func NewResolver(store *Store, fetcher KeySetFetcher, opts ...ResolverOption) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}

	r := &Resolver{
		store:        store,
		fetcher:      fetcher,
		fetchTimeout: DefaultFetchTimeout,
		logger:       telemetry.NopLogger{},
		metrics:      telemetry.NoopMetrics{},
		tracer:       telemetry.NoopTracer{},
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return r, nil
}

// Resolve returns the key with the given id.
//
// A fresh cached set containing kid is served without network I/O. Otherwise
// (no set, expired set, or kid absent from a fresh set) exactly one fetch is
// made and its result replaces the cache. A kid absent from a fresh cache
// usually means the provider rotated keys since the last fetch. If the kid is
// still missing after that fetch, an error matching ErrUnknownKey is
// returned. Fetch errors are returned unchanged.
//
// Concurrent misses share one in-flight fetch. A caller that joins a fetch
// started before its kid was published gets that fetch's set, and so
// ErrUnknownKey, without a fetch of its own. Retrying after the current
// fetch completes will trigger a new one.
func (r *Resolver) Resolve(ctx context.Context, kid string) (SigningKey, error) {
	if set, ok := r.store.Read(); ok {
		if key, found := set.Lookup(kid); found {
			r.metrics.IncCounter(telemetry.MetricCacheLookups, map[string]string{"result": "hit"})
			r.logger.Debug("returning JWKS key from cache", "kid", kid)
			return key, nil
		}
		r.logger.Warn("key not found in cached JWKS, refreshing", "kid", kid)
	} else {
		r.logger.Debug("JWKS cache empty or expired", "kid", kid)
	}
	r.metrics.IncCounter(telemetry.MetricCacheLookups, map[string]string{"result": "miss"})

	set, err := r.Refresh(ctx)
	if err != nil {
		return SigningKey{}, err
	}

	key, found := set.Lookup(kid)
	if !found {
		r.logger.Warn("no matching public key found in JWKS", "kid", kid)
		return SigningKey{}, &UnknownKeyError{KeyID: kid}
	}
	return key, nil
}

// Refresh fetches the key set and replaces the cache with it.
//
// Concurrent refreshes share one fetch. The fetch runs detached from ctx,
// bounded by the fetch timeout, so a caller that gives up does not cancel it
// for the others and the result is still cached. A caller whose ctx ends
// first gets an ErrNetwork error wrapping ctx.Err().
func (r *Resolver) Refresh(ctx context.Context) (*KeySet, error) {
	ch := r.group.DoChan("jwks", func() (any, error) {
		return r.fetch(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	case <-ctx.Done():
		return nil, &FetchError{Kind: ErrNetwork, Err: ctx.Err()}
	}
}

func (r *Resolver) fetch(ctx context.Context) (*KeySet, error) {
	ctx, span := r.tracer.StartSpan(ctx, "jwks.fetch")
	defer span.Finish()

	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	start := time.Now()
	set, err := r.fetcher.Fetch(ctx)
	r.metrics.ObserveHistogram(telemetry.MetricFetchDuration, time.Since(start).Seconds(), map[string]string{})

	if err != nil {
		r.metrics.IncCounter(telemetry.MetricFetches, map[string]string{"outcome": fetchOutcome(err)})
		span.RecordError(err)
		return nil, err
	}

	r.store.Write(set)
	r.metrics.IncCounter(telemetry.MetricFetches, map[string]string{"outcome": "success"})
	r.metrics.SetGauge(telemetry.MetricKeys, float64(set.Len()), map[string]string{})
	span.SetTag("jwks.keys", set.Len())
	r.logger.Info("JWKS cache updated", "keys", set.Len(), "expires_at", set.ExpiresAt)
	return set, nil
}

func fetchOutcome(err error) string {
	switch {
	case errors.Is(err, ErrNetwork):
		return "network_error"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	default:
		return "error"
	}
}
