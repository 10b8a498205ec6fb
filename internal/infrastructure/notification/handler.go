package notification

import (
	"context"

	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
)

// Handler turns committed loyalty events into queued messages
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler creates a Handler that feeds dispatcher
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// EventTypes returns the loyalty events that produce a message
func (h *Handler) EventTypes() []string {
	return []string{
		loyalty.EventTypeAccountCreated,
		loyalty.EventTypePointsApplied,
		loyalty.EventTypeRewardRedeemed,
		loyalty.EventTypeRedemptionResolved,
	}
}

// Handle renders and enqueues. Delivery problems are counted by the
// dispatcher and never surface to the publisher.
func (h *Handler) Handle(_ context.Context, ev shared.DomainEvent) error {
	msg, ok := Render(ev)
	if !ok {
		return nil
	}
	h.dispatcher.Enqueue(msg)
	return nil
}
