package event

import (
	"context"
	"sync/atomic"

	"github.com/qualee/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyStats is a snapshot of deduplication counters
type IdempotencyStats struct {
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// IdempotentHandler drops events whose ID was already handled within the
// configured TTL. A failed delivery releases its key so a redelivery of the
// same event is attempted again.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// NewIdempotentHandler wraps handler with event-ID deduplication
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, config shared.IdempotencyConfig, logger *zap.Logger) *IdempotentHandler {
	return &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  config,
		logger:  logger,
	}
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler at most once per event ID
func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, ev)
	}

	key := "event:" + ev.EventID().String()
	fields := []zap.Field{
		zap.String("event_id", ev.EventID().String()),
		zap.String("event_type", ev.EventType()),
	}

	isNew, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		// An unreachable store must not swallow events.
		h.logger.Warn("idempotency check failed, handling anyway", append(fields, zap.Error(err))...)
	case !isNew:
		h.duplicates.Add(1)
		h.logger.Debug("duplicate event skipped", fields...)
		return nil
	}

	if err := h.handler.Handle(ctx, ev); err != nil {
		h.failed.Add(1)
		if relErr := h.store.Release(ctx, key); relErr != nil {
			h.logger.Warn("failed to release idempotency key", append(fields, zap.Error(relErr))...)
		}
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns the current counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed:  h.processed.Load(),
		Duplicates: h.duplicates.Load(),
		Failed:     h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
