package shared

import "context"

// EventHandler reacts to loyalty domain events after the producing
// transaction has committed.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants. Empty means all.
	EventTypes() []string
}

// EventPublisher is what application services depend on. A nil publisher
// disables notifications.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers. Without explicit types the handler's
// own EventTypes are used.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the process-wide dispatcher wired in cmd/server.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
