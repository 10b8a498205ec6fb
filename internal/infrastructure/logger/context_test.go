package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestWithRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, l := WithRequestID(context.Background(), zap.New(core), "req-1")
	l.Info("hello")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	entry := recorded.All()[0]
	assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
	assert.Same(t, l, FromContext(ctx))
}

func TestEnrich(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = context.WithValue(ctx, requestIDKey, "req-9")
	ctx = WithMerchantID(ctx, "m-1")

	Enrich(ctx, base).Info("applied")

	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "m-1", fields["merchant_id"])
}

func TestEnrich_NoContextValues(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	Enrich(context.Background(), zap.New(core)).Info("plain")

	assert.Empty(t, recorded.All()[0].Context)
	assert.NotNil(t, Enrich(context.Background(), nil))
}
