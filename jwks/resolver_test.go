package jwks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchprot/bearer-auth/internal/jwkstest"
	"github.com/batchprot/bearer-auth/telemetry"
)

func newTestResolver(t *testing.T, server *jwkstest.Server, clock *fakeClock, opts ...ResolverOption) (*Resolver, *Store) {
	t.Helper()

	store := NewStore(WithStoreClock(clock.Now))
	fetcher, err := NewFetcher(server.JWKSURL(), WithFetcherClock(clock.Now))
	require.NoError(t, err)

	r, err := NewResolver(store, fetcher, opts...)
	require.NoError(t, err)
	return r, store
}

func TestNewResolver(t *testing.T) {
	fetcher, err := NewFetcher("https://auth.example.com/api/auth/jwks")
	require.NoError(t, err)

	_, err = NewResolver(nil, fetcher)
	assert.EqualError(t, err, "store is required")

	_, err = NewResolver(NewStore(), nil)
	assert.EqualError(t, err, "fetcher is required")

	for name, opt := range map[string]ResolverOption{
		"zero timeout": WithFetchTimeout(0),
		"nil logger":   WithResolverLogger(nil),
		"nil metrics":  WithResolverMetrics(nil),
		"nil tracer":   WithResolverTracer(nil),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewResolver(NewStore(), fetcher, opt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid option")
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	kp1 := jwkstest.NewKeyPair(t, "kid-1")
	kp2 := jwkstest.NewKeyPair(t, "kid-2")

	t.Run("first resolve fetches and the next one is served from cache", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1)
		r, _ := newTestResolver(t, server, newFakeClock())

		key, err := r.Resolve(ctx, "kid-1")
		require.NoError(t, err)
		assert.Equal(t, "kid-1", key.KeyID)
		assert.Equal(t, 1, server.Requests())

		key, err = r.Resolve(ctx, "kid-1")
		require.NoError(t, err)
		assert.Equal(t, "kid-1", key.KeyID)
		assert.Equal(t, 1, server.Requests())
	})

	t.Run("an expired set is fetched again exactly once", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1)
		clock := newFakeClock()
		r, _ := newTestResolver(t, server, clock)

		_, err := r.Resolve(ctx, "kid-1")
		require.NoError(t, err)

		clock.Advance(DefaultTTL - time.Second)
		_, err = r.Resolve(ctx, "kid-1")
		require.NoError(t, err)
		assert.Equal(t, 1, server.Requests())

		clock.Advance(time.Second)
		_, err = r.Resolve(ctx, "kid-1")
		require.NoError(t, err)
		assert.Equal(t, 2, server.Requests())

		_, err = r.Resolve(ctx, "kid-1")
		require.NoError(t, err)
		assert.Equal(t, 2, server.Requests())
	})

	t.Run("a rotated key is picked up with one extra fetch", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1)
		r, store := newTestResolver(t, server, newFakeClock())

		_, err := r.Resolve(ctx, "kid-1")
		require.NoError(t, err)

		server.SetKeys(t, kp2)

		key, err := r.Resolve(ctx, "kid-2")
		require.NoError(t, err)
		assert.Equal(t, "kid-2", key.KeyID)
		assert.Equal(t, 2, server.Requests())

		set, ok := store.Read()
		require.True(t, ok)
		assert.Equal(t, []string{"kid-2"}, set.KeyIDs())
	})

	t.Run("an unknown kid costs one fetch and reports ErrUnknownKey", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1)
		r, _ := newTestResolver(t, server, newFakeClock())

		_, err := r.Resolve(ctx, "kid-1")
		require.NoError(t, err)

		_, err = r.Resolve(ctx, "kid-9")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownKey)
		assert.Contains(t, err.Error(), `"kid-9"`)
		assert.Equal(t, 2, server.Requests())
	})

	t.Run("fetch errors are returned unchanged", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1)
		server.SetStatus(500)
		r, store := newTestResolver(t, server, newFakeClock())

		_, err := r.Resolve(ctx, "kid-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUpstream)
		assert.NotErrorIs(t, err, ErrUnknownKey)

		_, ok := store.Read()
		assert.False(t, ok)
	})

	t.Run("a failed refresh keeps nothing and the next resolve retries", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1)
		server.SetBody(`not json`)
		r, _ := newTestResolver(t, server, newFakeClock())

		_, err := r.Resolve(ctx, "kid-1")
		assert.ErrorIs(t, err, ErrMalformedResponse)

		server.SetKeys(t, kp1)
		_, err = r.Resolve(ctx, "kid-1")
		require.NoError(t, err)
		assert.Equal(t, 2, server.Requests())
	})

	t.Run("the fetch timeout is reported as a network error", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1)
		release := server.Hold()
		defer release()

		r, _ := newTestResolver(t, server, newFakeClock(), WithFetchTimeout(50*time.Millisecond))

		_, err := r.Resolve(ctx, "kid-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNetwork)
	})

	t.Run("a cancelled caller does not cancel the shared fetch", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1)
		release := server.Hold()
		defer release()

		r, store := newTestResolver(t, server, newFakeClock())

		cctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			_, err := r.Resolve(cctx, "kid-1")
			done <- err
		}()

		require.Eventually(t, func() bool { return server.Requests() == 1 }, time.Second, 5*time.Millisecond)
		cancel()

		err := <-done
		assert.ErrorIs(t, err, ErrNetwork)
		assert.ErrorIs(t, err, context.Canceled)

		release()
		require.Eventually(t, func() bool {
			_, ok := store.Read()
			return ok
		}, time.Second, 5*time.Millisecond)

		_, err = r.Resolve(ctx, "kid-1")
		require.NoError(t, err)
		assert.Equal(t, 1, server.Requests())
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1, kp2)
		release := server.Hold()
		r, _ := newTestResolver(t, server, newFakeClock())

		const callers = 16
		var wg sync.WaitGroup
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				kid := "kid-1"
				if i%2 == 1 {
					kid = "kid-2"
				}
				key, err := r.Resolve(ctx, kid)
				if err == nil && key.KeyID != kid {
					err = errors.New("resolved " + key.KeyID + " for " + kid)
				}
				errs <- err
			}(i)
		}

		require.Eventually(t, func() bool { return server.Requests() == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		release()
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.Less(t, server.Requests(), callers)
	})

	t.Run("a caller joining an older fetch misses a newer kid until it retries", func(t *testing.T) {
		server := jwkstest.NewServer(t, kp1)
		release := server.Hold()
		defer release()
		r, _ := newTestResolver(t, server, newFakeClock())

		first := make(chan error, 1)
		go func() {
			_, err := r.Resolve(ctx, "kid-1")
			first <- err
		}()
		require.Eventually(t, func() bool { return server.Requests() == 1 }, time.Second, 5*time.Millisecond)

		server.SetKeys(t, kp1, kp2)
		joined := make(chan error, 1)
		go func() {
			_, err := r.Resolve(ctx, "kid-2")
			joined <- err
		}()
		time.Sleep(20 * time.Millisecond)
		release()

		require.NoError(t, <-first)
		assert.ErrorIs(t, <-joined, ErrUnknownKey)
		assert.Equal(t, 1, server.Requests())

		key, err := r.Resolve(ctx, "kid-2")
		require.NoError(t, err)
		assert.Equal(t, "kid-2", key.KeyID)
		assert.Equal(t, 2, server.Requests())
	})
}

type recordedMetric struct {
	name  string
	value float64
	tags  map[string]string
}

type recordingMetrics struct {
	mu       sync.Mutex
	counters []recordedMetric
	gauges   []recordedMetric
	observed []recordedMetric
}

func (m *recordingMetrics) IncCounter(name string, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, recordedMetric{name: name, value: 1, tags: tags})
}

func (m *recordingMetrics) ObserveHistogram(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, recordedMetric{name: name, value: value, tags: tags})
}

func (m *recordingMetrics) SetGauge(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges = append(m.gauges, recordedMetric{name: name, value: value, tags: tags})
}

func (m *recordingMetrics) count(name, key, value string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.counters {
		if c.name == name && c.tags[key] == value {
			n++
		}
	}
	return n
}

var _ telemetry.Metrics = (*recordingMetrics)(nil)

func TestResolver_Metrics(t *testing.T) {
	ctx := context.Background()
	kp1 := jwkstest.NewKeyPair(t, "kid-1")
	kp2 := jwkstest.NewKeyPair(t, "kid-2")

	server := jwkstest.NewServer(t, kp1, kp2)
	metrics := &recordingMetrics{}
	r, _ := newTestResolver(t, server, newFakeClock(), WithResolverMetrics(metrics))

	_, err := r.Resolve(ctx, "kid-1")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "kid-2")
	require.NoError(t, err)

	server.SetStatus(502)
	_, err = r.Resolve(ctx, "kid-3")
	require.Error(t, err)

	assert.Equal(t, 1, metrics.count(telemetry.MetricCacheLookups, "result", "hit"))
	assert.Equal(t, 2, metrics.count(telemetry.MetricCacheLookups, "result", "miss"))
	assert.Equal(t, 1, metrics.count(telemetry.MetricFetches, "outcome", "success"))
	assert.Equal(t, 1, metrics.count(telemetry.MetricFetches, "outcome", "upstream_error"))

	require.Len(t, metrics.gauges, 1)
	assert.Equal(t, telemetry.MetricKeys, metrics.gauges[0].name)
	assert.Equal(t, 2.0, metrics.gauges[0].value)
	assert.Len(t, metrics.observed, 2)
}

func TestFetchOutcome(t *testing.T) {
	for err, want := range map[error]string{
		&FetchError{Kind: ErrNetwork}:           "network_error",
		&FetchError{Kind: ErrUpstream}:          "upstream_error",
		&FetchError{Kind: ErrMalformedResponse}: "malformed_response",
		errors.New("boom"):                      "error",
	} {
		assert.Equal(t, want, fetchOutcome(err))
	}
}
