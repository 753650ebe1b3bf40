package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/trexinity/another/pkg/config"
	"github.com/trexinity/another/pkg/interfaces"
)

// SubjectPrefix prefixes every subject the storefront publishes on.
const SubjectPrefix = "storefront."

const publishTimeout = 5 * time.Second

// NATSPublisher forwards storefront events to a JetStream stream.
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *zap.Logger
	wg     sync.WaitGroup
}

// Envelope is the wire form of a published event.
type Envelope struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregate_id,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Data        map[string]any `json:"data,omitempty"`
}

// NewNATSPublisher connects to NATS and makes sure the event stream exists.
// The returned cleanup drains the connection.
func NewNATSPublisher(ctx context.Context, cfg config.NATSConfig, logger *zap.Logger) (*NATSPublisher, func(), error) {
	logger = logger.Named("nats")

	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream := jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Storefront catalog and engagement events",
		Subjects:    []string{SubjectPrefix + ">"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Replicas:    1,
		MaxMsgs:     -1,
		MaxBytes:    -1,
	}
	if _, err := js.CreateOrUpdateStream(ctx, stream); err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create %s stream: %w", cfg.Stream, err)
	}

	p := &NATSPublisher{nc: nc, js: js, logger: logger}
	cleanup := func() {
		p.wg.Wait()
		if err := nc.Drain(); err != nil {
			logger.Error("failed to drain NATS connection", zap.Error(err))
		}
	}

	logger.Info("NATS publisher initialized",
		zap.String("url", cfg.URL),
		zap.String("stream", cfg.Stream))

	return p, cleanup, nil
}

// Subject returns the subject an event type is published on.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// Publish sends event to JetStream and waits for the ack. The event id is
// used as the deduplication id.
func (p *NATSPublisher) Publish(ctx context.Context, event interfaces.Event) error {
	env := Envelope{
		ID:          event.EventID(),
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  time.Unix(0, event.Timestamp()).UTC(),
	}
	if be, ok := event.(*BaseEvent); ok {
		env.Data = be.Data
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	subject := Subject(event.EventType())
	ack, err := p.js.Publish(pubCtx, subject, data, jetstream.WithMsgID(event.EventID()))
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.Debug("event published",
		zap.String("event_id", event.EventID()),
		zap.String("subject", subject),
		zap.Uint64("sequence", ack.Sequence))
	return nil
}

// PublishAsync publishes in the background; failures are logged.
func (p *NATSPublisher) PublishAsync(ctx context.Context, event interfaces.Event) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.Publish(context.WithoutCancel(ctx), event); err != nil {
			p.logger.Error("async publish failed",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}()
}

// Health reports whether the connection is up and JetStream answers.
func (p *NATSPublisher) Health(ctx context.Context) error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("NATS client is not connected")
	}
	if _, err := p.js.AccountInfo(ctx); err != nil {
		return fmt.Errorf("failed to get JetStream account info: %w", err)
	}
	return nil
}
