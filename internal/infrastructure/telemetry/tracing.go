package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for service and dispatcher spans.
const TracerName = "qualee-backend"

// SpanOption configures a span started through StartSpan.
type SpanOption func(*spanSettings)

type spanSettings struct {
	kind  trace.SpanKind
	attrs []attribute.KeyValue
}

// WithAttribute attaches key=value to the span at start.
func WithAttribute(key string, value any) SpanOption {
	return func(s *spanSettings) { s.attrs = append(s.attrs, toAttribute(key, value)) }
}

// WithSpanKind overrides the default internal span kind.
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(s *spanSettings) { s.kind = kind }
}

// StartSpan starts a span on the global tracer provider. The caller must
// end it.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	s := spanSettings{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(&s)
	}
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(s.kind),
		trace.WithAttributes(s.attrs...),
	)
}

// StartServiceSpan starts a span named {service}.{method}, e.g. "points.apply".
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttributes adds alternating key/value pairs to span. Pairs whose key is
// not a string, and a trailing unpaired key, are skipped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	span.SetAttributes(attrs...)
}

// SetAttribute adds one attribute to span.
func SetAttribute(span trace.Span, key string, value any) {
	if span != nil {
		span.SetAttributes(toAttribute(key, value))
	}
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
