package rabbit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes JSON messages to a single exchange.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewPublisher creates a publisher bound to the given exchange.
func NewPublisher(channel *amqp.Channel, exchange string) (*Publisher, error) {
	if channel == nil {
		return nil, fmt.Errorf("channel cannot be nil")
	}
	if exchange == "" {
		return nil, fmt.Errorf("exchange cannot be empty")
	}
	return &Publisher{channel: channel, exchange: exchange}, nil
}

// Publish sends a persistent JSON message under the routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", p.exchange, routingKey, err)
	}

	slog.Debug("Published message",
		"exchange", p.exchange,
		"routing_key", routingKey,
		"bytes", len(body),
	)

	return nil
}
