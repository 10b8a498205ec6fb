package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qualee/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var (
	attrHTTPMethod     = attribute.Key("http.method")
	attrHTTPRoute      = attribute.Key("http.route")
	attrHTTPStatusCode = attribute.Key("http.status_code")
)

// httpDurationBuckets are request latency boundaries in milliseconds
var httpDurationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}
	requestDuration, err := telemetry.NewHistogram(meter,
		"http_server_request_duration_ms",
		"HTTP request latency distribution in milliseconds",
		"ms",
		httpDurationBuckets...,
	)
	if err != nil {
		return nil, err
	}
	activeRequests, err := meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics records request count, latency and in-flight requests per
// route. A nil meter, or one whose instruments fail to build, yields a
// pass-through.
func HTTPMetrics(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		logger.Warn("HTTP metrics disabled", zap.Error(err))
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		m.activeRequests.Add(ctx, 1)
		c.Next()
		m.activeRequests.Add(ctx, -1)

		// Route pattern, not raw path, keeps cardinality bounded
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		routeAttrs := []attribute.KeyValue{
			attrHTTPMethod.String(c.Request.Method),
			attrHTTPRoute.String(route),
		}
		m.requestTotal.Inc(ctx, append(routeAttrs, attrHTTPStatusCode.Int(c.Writer.Status()))...)
		m.requestDuration.Observe(ctx, time.Since(start).Milliseconds(), routeAttrs...)
	}
}
