package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the optional header guarding mutations
	IdempotencyKeyHeader = "Idempotency-Key"
	// MaxIdempotencyKeyLength bounds the header value
	MaxIdempotencyKeyLength = 255

	idempotencyKeyPrefix = "http:"
)

// Idempotency reserves the Idempotency-Key of a mutating request for the
// configured TTL. A key that is already reserved answers 409
// DUPLICATE_REQUEST. The reservation is released when the request ends with
// a 4xx/5xx so the caller can retry. Requests without the header pass
// through, and a store error fails open.
func Idempotency(store shared.IdempotencyStore, cfg shared.IdempotencyConfig, logger *zap.Logger) gin.HandlerFunc {
	if store == nil || !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			abortWithError(c, dto.ErrCodeInvalidRequest, "Idempotency-Key is too long")
			return
		}

		// Keys are scoped by route so the same value on two endpoints is independent
		storeKey := idempotencyKeyPrefix + c.Request.Method + ":" + c.FullPath() + ":" + key
		ctx := c.Request.Context()

		reserved, err := store.MarkProcessed(ctx, storeKey, cfg.TTL)
		if err != nil {
			logger.Warn("Idempotency store unavailable, processing request",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !reserved {
			abortWithError(c, dto.ErrCodeDuplicateRequest, "A request with this Idempotency-Key was already processed")
			return
		}

		c.Next()

		// The request context may already be cancelled by a client that gave up.
		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Release(context.WithoutCancel(ctx), storeKey); err != nil {
				logger.Warn("Failed to release idempotency key",
					zap.String("request_id", GetRequestID(c)),
					zap.Error(err),
				)
			}
		}
	}
}
