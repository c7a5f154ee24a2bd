package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/voxqueue/internal/orchestrator"
	"github.com/nats-io/nats.go"
)

const clientName = "voxqueue"

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes orchestrator events as JSON on
// "<subject>.<event type>".
type NATSPublisher struct {
	conn    natsConn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(clientName),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("nats connection closed")
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("connected to nats", "url", conn.ConnectedUrl(), "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event orchestrator.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	subject := p.subjectFor(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) subjectFor(t orchestrator.EventType) string {
	return p.subject + "." + string(t)
}

func (p *NATSPublisher) Shutdown() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
