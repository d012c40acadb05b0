package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Broadcaster is the websocket hub as seen by HubChannel
type Broadcaster interface {
	Publish(ctx context.Context, msgType string, data any) error
}

// HubChannel pushes events to connected dashboard clients
type HubChannel struct {
	hub Broadcaster
}

func NewHubChannel(hub Broadcaster) *HubChannel {
	return &HubChannel{hub: hub}
}

func (c *HubChannel) Name() string { return "websocket" }

func (c *HubChannel) Deliver(ctx context.Context, e Event) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.hub.Publish(ctx, e.Type, e)
}

// natsPublisher is satisfied by *nats.Conn
type natsPublisher interface {
	Publish(subj string, data []byte) error
}

// NATSChannel publishes events as JSON on <subject>.<kind>.<type>
type NATSChannel struct {
	conn    natsPublisher
	subject string
}

func NewNATSChannel(conn *nats.Conn, subject string) *NATSChannel {
	return &NATSChannel{conn: conn, subject: subject}
}

func (c *NATSChannel) Name() string { return "nats" }

func (c *NATSChannel) Deliver(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return c.conn.Publish(c.subject+"."+string(e.Kind)+"."+e.Type, data)
}

// ConnectNATS dials the broker used by NATSChannel
func ConnectNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("bizdesk"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}
