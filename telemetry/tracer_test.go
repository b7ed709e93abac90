package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	got, span := NoopTracer{}.StartSpan(ctx, "jwks.fetch")

	assert.Equal(t, ctx, got)
	_, ok := span.(NoopSpan)
	assert.True(t, ok, "Should return a NoopSpan")

	span.SetTag("jwks.keys", 2)
	span.RecordError(errors.New("boom"))
	span.Finish()
}

func TestOpenTelemetryTracer(t *testing.T) {
	tracer := NewOpenTelemetryTracer(noop.NewTracerProvider().Tracer("test"))

	ctx, span := tracer.StartSpan(context.Background(), "jwks.fetch")

	_, ok := span.(*OpenTelemetrySpan)
	assert.True(t, ok, "Should return an OpenTelemetrySpan")
	assert.NotNil(t, oteltrace.SpanFromContext(ctx))

	assert.NotPanics(t, func() {
		span.SetTag("url", "https://auth.example.com/api/auth/jwks")
		span.SetTag("cached", true)
		span.SetTag("jwks.keys", 2)
		span.SetTag("bytes", int64(512))
		span.SetTag("ttl", 3.5)
		span.RecordError(nil)
		span.RecordError(errors.New("boom"))
		span.Finish()
	})
}
