package relay

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/rickgao/live-market/internal/model"
)

// natsConn is the subset of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events to NATS core subjects.
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, prefix, clientName string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: nc, prefix: prefix}, nil
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(event model.Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, event.Type, event.ItemID)
}

// Name implements Publisher.
func (p *NATSPublisher) Name() string { return "nats" }

// Publish implements Publisher. NATS core publishes are buffered by the
// client, so ctx is not consulted.
func (p *NATSPublisher) Publish(_ context.Context, event model.Event, payload []byte) error {
	return p.conn.Publish(p.Subject(event), payload)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
