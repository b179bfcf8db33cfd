package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes events as JSON on "<prefix>.<type>" subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("hireflow"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Subject returns the subject an event of type t is published on.
func (p *NATSPublisher) Subject(t Type) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

// Publish marshals e and publishes it. Core NATS publishing is fire and
// forget; ctx only guards against publishing after cancellation.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	if err := p.conn.Publish(p.Subject(e.Type), data); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}

// Ping reports whether the connection is currently usable.
func (p *NATSPublisher) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats: %s", p.conn.Status())
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
