package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix namespaces contentplan events on the NATS wire.
const SubjectPrefix = "contentplan.events."

// NATSBus is a Bus implementation backed by a NATS connection, for deployments
// where subscribers live outside the process. Payloads are published as JSON.
type NATSBus struct {
	nc *nats.Conn
}

// NewNATSBus connects to the given NATS URL and returns a bus.
func NewNATSBus(url string) (*NATSBus, error) {
	nc, err := nats.Connect(url,
		nats.Name("contentplan"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Debug("NATSBus connected", "url", url)
	return &NATSBus{nc: nc}, nil
}

// Emit publishes the event payload as JSON on the namespaced subject.
func (b *NATSBus) Emit(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	if err := b.nc.Publish(SubjectPrefix+event, data); err != nil {
		slog.Error("NATSBus publish failed", "event", event, "error", err)
		return fmt.Errorf("failed to publish event %s: %w", event, err)
	}
	slog.Debug("NATSBus event published", "event", event, "bytes", len(data))
	return nil
}

// Subscribe registers a handler for an event. The raw JSON payload is passed
// to the handler as json.RawMessage.
func (b *NATSBus) Subscribe(event string, handler Handler) (func(), error) {
	sub, err := b.nc.Subscribe(SubjectPrefix+event, func(msg *nats.Msg) {
		handler(context.Background(), json.RawMessage(msg.Data))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to event %s: %w", event, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("NATSBus unsubscribe failed", "event", event, "error", err)
		}
	}, nil
}

// Close drains and closes the underlying NATS connection.
func (b *NATSBus) Close() {
	b.nc.Close()
}
