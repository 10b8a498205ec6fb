package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs a recording tracer provider for one test.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prevTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prevTP)
	})
	return sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func tracedRouter(handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(DefaultTracingConfig()), SpanAttributes())
	router.GET("/api/v1/loyalty/points", handler)
	return router
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/test", okHandler)

	w := serve(router, http.MethodGet, "/test", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestSpanAttributes(t *testing.T) {
	t.Run("tags request and merchant IDs", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := tracedRouter(okHandler)

		merchantID := "6f1c2d3e-4a5b-4c6d-8e7f-9a0b1c2d3e4f"
		w := serve(router, http.MethodGet, "/api/v1/loyalty/points?merchantId="+merchantID, "",
			map[string]string{RequestIDHeader: "req-42"})
		assert.Equal(t, http.StatusOK, w.Code)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "GET /api/v1/loyalty/points", spans[0].Name())
		attrs := spanAttrs(spans[0])
		assert.Equal(t, "req-42", attrs["request_id"].AsString())
		assert.Equal(t, merchantID, attrs["merchant_id"].AsString())
		assert.NotEqual(t, codes.Error, spans[0].Status().Code)
	})

	t.Run("ignores malformed merchant IDs", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := tracedRouter(okHandler)

		serve(router, http.MethodGet, "/api/v1/loyalty/points?merchantId=<script>", "", nil)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		_, ok := spanAttrs(spans[0])["merchant_id"]
		assert.False(t, ok)
	})

	t.Run("marks error responses", func(t *testing.T) {
		for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable} {
			sr := setupTestTracer(t)
			router := tracedRouter(func(c *gin.Context) {
				c.Status(status)
			})

			serve(router, http.MethodGet, "/api/v1/loyalty/points", "", nil)

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status().Code, "status %d", status)
		}
	})

	t.Run("no span is a no-op", func(t *testing.T) {
		router := gin.New()
		router.Use(SpanAttributes())
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

		w := serve(router, http.MethodGet, "/test", "", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
