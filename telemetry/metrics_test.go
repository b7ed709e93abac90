package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	var metrics Metrics = NoopMetrics{}

	metrics.IncCounter(MetricFetches, map[string]string{"outcome": "success"})
	metrics.ObserveHistogram(MetricFetchDuration, 1.5, map[string]string{})
	metrics.SetGauge(MetricKeys, 2, map[string]string{})
}

func TestPrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	t.Run("IncCounter", func(t *testing.T) {
		tags := map[string]string{"outcome": "success"}
		metrics.IncCounter(MetricVerifications, tags)
		metrics.IncCounter(MetricVerifications, tags)

		counter, ok := metrics.counters[MetricVerifications]
		require.True(t, ok, "Counter should be registered")

		metric := &dto.Metric{}
		err := counter.With(prometheus.Labels(tags)).(prometheus.Metric).Write(metric)
		require.NoError(t, err)
		assert.Equal(t, float64(2), metric.GetCounter().GetValue())
	})

	t.Run("ObserveHistogram", func(t *testing.T) {
		metrics.ObserveHistogram(MetricFetchDuration, 0.25, map[string]string{})
		metrics.ObserveHistogram(MetricFetchDuration, 0.75, map[string]string{})

		hist, ok := metrics.histograms[MetricFetchDuration]
		require.True(t, ok, "Histogram should be registered")

		metric := &dto.Metric{}
		err := hist.With(prometheus.Labels{}).(prometheus.Metric).Write(metric)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
		assert.Equal(t, 1.0, metric.GetHistogram().GetSampleSum())
	})

	t.Run("SetGauge", func(t *testing.T) {
		metrics.SetGauge(MetricKeys, 3, map[string]string{})
		metrics.SetGauge(MetricKeys, 2, map[string]string{})

		gauge, ok := metrics.gauges[MetricKeys]
		require.True(t, ok, "Gauge should be registered")

		metric := &dto.Metric{}
		err := gauge.With(prometheus.Labels{}).(prometheus.Metric).Write(metric)
		require.NoError(t, err)
		assert.Equal(t, 2.0, metric.GetGauge().GetValue())
	})

	t.Run("collectors are gathered from the registry", func(t *testing.T) {
		families, err := registry.Gather()
		require.NoError(t, err)

		names := make([]string, 0, len(families))
		for _, f := range families {
			names = append(names, f.GetName())
		}
		assert.ElementsMatch(t, []string{MetricVerifications, MetricFetchDuration, MetricKeys}, names)
	})
}

func TestPrometheusMetrics_SharedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	tags := map[string]string{"result": "hit"}

	first := NewPrometheusMetrics(registry)
	second := NewPrometheusMetrics(registry)

	first.IncCounter(MetricCacheLookups, tags)
	assert.NotPanics(t, func() { second.IncCounter(MetricCacheLookups, tags) })

	metric := &dto.Metric{}
	err := first.counters[MetricCacheLookups].With(prometheus.Labels(tags)).(prometheus.Metric).Write(metric)
	require.NoError(t, err)
	assert.Equal(t, float64(2), metric.GetCounter().GetValue())
}

func TestLabelNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, labelNames(map[string]string{"c": "3", "a": "1", "b": "2"}))
	assert.Empty(t, labelNames(nil))
}
