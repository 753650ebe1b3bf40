package events

import (
	"context"
	"sync"

	"github.com/trexinity/another/pkg/interfaces"
	"github.com/trexinity/another/pkg/metrics"
)

// InMemoryEventBus delivers events to in-process handlers. It can forward
// every event to a downstream publisher such as NATS.
type InMemoryEventBus struct {
	handlers map[string][]interfaces.EventHandler
	forward  interfaces.EventPublisher
	metrics  *metrics.Metrics
	mu       sync.RWMutex
	logger   interfaces.Logger
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// Option configures an InMemoryEventBus.
type Option func(*InMemoryEventBus)

// WithForwarder forwards each published event to p after local handlers ran.
func WithForwarder(p interfaces.EventPublisher) Option {
	return func(eb *InMemoryEventBus) {
		eb.forward = p
	}
}

// WithMetrics counts every event whose publish succeeded.
func WithMetrics(m *metrics.Metrics) Option {
	return func(eb *InMemoryEventBus) {
		eb.metrics = m
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger interfaces.Logger, opts ...Option) *InMemoryEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	eb := &InMemoryEventBus{
		handlers: make(map[string][]interfaces.EventHandler),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(eb)
	}
	return eb
}

// Publish publishes an event to all subscribers. Handler failures are
// logged and never fail the publisher; a forwarder failure is returned.
func (eb *InMemoryEventBus) Publish(ctx context.Context, event interfaces.Event) error {
	eb.mu.RLock()
	handlers := append([]interfaces.EventHandler(nil), eb.handlers[event.EventType()]...)
	eb.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			eb.logger.Error("Event handler failed",
				interfaces.String("event_type", event.EventType()),
				interfaces.String("handler", handler.EventType()),
				interfaces.Error(err))
		}
	}

	if eb.forward != nil {
		if err := eb.forward.Publish(ctx, event); err != nil {
			return err
		}
	}
	eb.metrics.EventPublished(event.EventType())
	return nil
}

// PublishAsync publishes an event on a background goroutine that outlives
// the caller's context. Stop waits for in-flight deliveries.
func (eb *InMemoryEventBus) PublishAsync(ctx context.Context, event interfaces.Event) {
	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		if err := eb.Publish(context.WithoutCancel(ctx), event); err != nil {
			eb.logger.Error("Async event publish failed",
				interfaces.String("event_type", event.EventType()),
				interfaces.Error(err))
		}
	}()
}

// Subscribe registers a handler for a specific event type
func (eb *InMemoryEventBus) Subscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debug("Event handler subscribed",
		interfaces.String("event_type", eventType),
		interfaces.String("handler", handler.EventType()))

	return nil
}

// Unsubscribe removes a handler for a specific event type
func (eb *InMemoryEventBus) Unsubscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	handlers := eb.handlers[eventType]
	for i, h := range handlers {
		if h == handler {
			eb.handlers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			break
		}
	}

	return nil
}

// Start starts the event bus
func (eb *InMemoryEventBus) Start(ctx context.Context) error {
	eb.logger.Info("Event bus started")
	return nil
}

// Stop waits for asynchronous deliveries and stops the bus
func (eb *InMemoryEventBus) Stop() error {
	eb.cancel()
	eb.wg.Wait()
	eb.logger.Info("Event bus stopped")
	return nil
}

// HandlerFunc adapts a function to interfaces.EventHandler.
type HandlerFunc struct {
	Type string
	Fn   func(ctx context.Context, event interfaces.Event) error
}

func (h *HandlerFunc) Handle(ctx context.Context, event interfaces.Event) error {
	return h.Fn(ctx, event)
}

func (h *HandlerFunc) EventType() string { return h.Type }
