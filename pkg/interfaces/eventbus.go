package interfaces

import (
	"context"
)

// Event is a storefront domain event: something that happened to a title
// or a user's library.
type Event interface {
	// EventID is unique per emitted event
	EventID() string

	// EventType returns the dotted type, e.g. "title.liked"
	EventType() string

	// Timestamp returns when the event occurred, in unix nanoseconds
	Timestamp() int64

	// AggregateID returns the id of the title or user the event is about
	AggregateID() string
}

// EventHandler handles events of a specific type.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	EventType() string
}

// EventPublisher is the write side of an event bus.
type EventPublisher interface {
	// Publish delivers an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishAsync publishes without waiting; failures are logged
	PublishAsync(ctx context.Context, event Event)
}

// EventBus provides pub/sub functionality for domain events.
type EventBus interface {
	EventPublisher

	Subscribe(eventType string, handler EventHandler) error
	Unsubscribe(eventType string, handler EventHandler) error

	Start(ctx context.Context) error
	Stop() error
}
