package router

import (
	"github.com/gin-gonic/gin"
	"github.com/qualee/backend/internal/infrastructure/logger"
	"github.com/qualee/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig configures the global middleware stack
type EngineConfig struct {
	Logger         *zap.Logger
	TrustedProxies []string
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	MaxBodySize    int64
	Tracing        middleware.TracingConfig
	// Meter records HTTP metrics; nil disables them
	Meter metric.Meter
	// RateLimiter limits requests per client IP; nil disables limiting
	RateLimiter middleware.Limiter
}

// NewEngine creates a gin engine with the middleware stack applied in order:
//  1. RequestID - Generate/propagate request ID
//  2. Recovery - Catch panics
//  3. Logger - Log requests
//  4. Tracing - Server span plus request/merchant attributes
//  5. Metrics - Request count and latency per route
//  6. Security - Add security headers
//  7. CORS - Handle cross-origin requests
//  8. BodyLimit - Limit request body size
//  9. RateLimit - Apply rate limiting (if configured)
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing), middleware.SpanAttributes())
	engine.Use(middleware.HTTPMetrics(cfg.Meter, log))
	engine.Use(middleware.SecureWithConfig(cfg.Security))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter, log))
	}

	return engine
}
