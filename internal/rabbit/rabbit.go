// Package rabbit wraps the AMQP broker connection, queue topology and the
// publish/consume primitives used by the ingestion pipeline.
package rabbit

import (
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client holds the broker connection and the channel used for topology
// declaration and publishing.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects to the broker and opens a channel.
func Dial(url string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("broker URL cannot be empty")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	slog.Info("Successfully connected to RabbitMQ broker")

	return &Client{conn: conn, channel: channel}, nil
}

// Channel returns the client's channel.
func (c *Client) Channel() *amqp.Channel {
	return c.channel
}

// NewChannel opens an additional channel on the same connection. Consumers
// get their own channel so a consumer error cannot kill publishing.
func (c *Client) NewChannel() (*amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			slog.Warn("Failed to close channel", "error", err)
		}
	}
	if c.conn != nil {
		slog.Info("Closing broker connection")
		return c.conn.Close()
	}
	return nil
}

// NotifyClose registers a listener for connection-level failures.
func (c *Client) NotifyClose() chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}
