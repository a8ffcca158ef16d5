package rabbit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// MinWorkers and MaxWorkers bound the consumer pool size.
	MinWorkers = 3
	MaxWorkers = 10

	// DefaultPrefetch is the per-channel QoS prefetch count.
	DefaultPrefetch = 10
)

// Handler processes one delivery. The handler owns acknowledgement: it must
// ack or nack every delivery it receives.
type Handler func(ctx context.Context, delivery amqp.Delivery)

// Consumer runs a worker pool over a single queue's deliveries.
type Consumer struct {
	channel  *amqp.Channel
	queue    string
	tag      string
	prefetch int
	workers  int
	handler  Handler
}

// NewConsumer creates a consumer for the queue. The worker count is clamped
// to the [MinWorkers, MaxWorkers] range.
func NewConsumer(channel *amqp.Channel, queue, tag string, prefetch, workers int, handler Handler) (*Consumer, error) {
	if channel == nil {
		return nil, fmt.Errorf("channel cannot be nil")
	}
	if queue == "" {
		return nil, fmt.Errorf("queue cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if prefetch <= 0 {
		prefetch = DefaultPrefetch
	}
	if workers < MinWorkers {
		workers = MinWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	return &Consumer{
		channel:  channel,
		queue:    queue,
		tag:      tag,
		prefetch: prefetch,
		workers:  workers,
		handler:  handler,
	}, nil
}

// Start begins consuming and blocks until the context is cancelled or the
// delivery stream closes. All in-flight handlers finish before Start returns.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := c.channel.Consume(
		c.queue,
		c.tag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", c.queue, err)
	}

	slog.Info("Consumer started",
		"queue", c.queue,
		"workers", c.workers,
		"prefetch", c.prefetch,
	)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.runWorker(ctx, workerID, deliveries)
		}(i)
	}

	<-ctx.Done()

	if err := c.channel.Cancel(c.tag, false); err != nil {
		slog.Warn("Failed to cancel consumer", "queue", c.queue, "error", err)
	}

	wg.Wait()
	slog.Info("Consumer stopped", "queue", c.queue)
	return nil
}

func (c *Consumer) runWorker(ctx context.Context, workerID int, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				slog.Debug("Delivery stream closed", "queue", c.queue, "worker", workerID)
				return
			}
			c.handler(ctx, delivery)
		}
	}
}
