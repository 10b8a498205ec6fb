package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qualee/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed and
// reports how many requests remain in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, int, error)
	Limit() int
}

// RateLimiter is an in-memory per-key token bucket. Each key refills limit
// tokens per window with a burst of limit.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*visitor
	limit    int
	every    rate.Limit
	idleTTL  time.Duration
	now      func() time.Time
	stopOnce sync.Once
	stop     chan struct{}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter and starts its idle-key sweeper
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*visitor),
		limit:   limit,
		every:   rate.Limit(float64(limit) / window.Seconds()),
		idleTTL: window * 2,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, v := range rl.clients {
				if now.Sub(v.lastSeen) > rl.idleTTL {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow implements Limiter
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.clients[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.clients[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	remaining := int(v.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, nil
}

// Limit implements Limiter
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Stop ends the sweeper goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// RateLimit returns a per-client-IP rate limiting middleware. A limiter
// backend error lets the request through.
func RateLimit(limiter Limiter, logger *zap.Logger) gin.HandlerFunc {
	return RateLimitByKey(limiter, logger, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitByKey returns a rate limiting middleware with custom key extractor
func RateLimitByKey(limiter Limiter, logger *zap.Logger, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, err := limiter.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			abortWithError(c, dto.ErrCodeRateLimited, "Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}
