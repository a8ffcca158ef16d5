package rabbit

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names the exchanges, queues and bindings the pipeline depends on.
// Declaration is idempotent, so every process declares the full topology at
// startup regardless of which parts it uses.
type Topology struct {
	SensorExchange string
	AlertsExchange string
	DLXExchange    string

	ReadingsQueue   string
	ReadingsKey     string
	HistoricalQueue string
	HistoricalKey   string

	DeadLetterQueue string
	DeadLetterKey   string

	EmailQueue string
	EmailKey   string
	SMSQueue   string
	SMSKey     string

	// MessageTTL bounds how long a failed reading cycles through the main
	// queue before the broker dead-letters it.
	MessageTTL time.Duration
}

// DefaultTopology returns the production queue layout.
func DefaultTopology() Topology {
	return Topology{
		SensorExchange: "sensor.exchange",
		AlertsExchange: "alerts.exchange",
		DLXExchange:    "sensor.exchange.dlx",

		ReadingsQueue:   "sensor.readings",
		ReadingsKey:     "sensor.readings.key",
		HistoricalQueue: "historical.data",
		HistoricalKey:   "sensor.historical",

		DeadLetterQueue: "sensor.readings.dlq",
		DeadLetterKey:   "sensor.readings.failed",

		EmailQueue: "email.notifications",
		EmailKey:   "alerts.email",
		SMSQueue:   "sms.notifications",
		SMSKey:     "alerts.sms",

		MessageTTL: time.Hour,
	}
}

// Declare creates the exchanges, queues and bindings on the given channel.
func (t Topology) Declare(ch *amqp.Channel) error {
	for _, exchange := range []string{t.SensorExchange, t.AlertsExchange, t.DLXExchange} {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	// The readings queue dead-letters into the DLX once a message's TTL
	// expires, which caps the redelivery churn of a persistently failing
	// message.
	readingsArgs := amqp.Table{
		"x-dead-letter-exchange":    t.DLXExchange,
		"x-dead-letter-routing-key": t.DeadLetterKey,
		"x-message-ttl":             t.MessageTTL.Milliseconds(),
	}
	if _, err := ch.QueueDeclare(t.ReadingsQueue, true, false, false, false, readingsArgs); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", t.ReadingsQueue, err)
	}
	if err := ch.QueueBind(t.ReadingsQueue, t.ReadingsKey, t.SensorExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", t.ReadingsQueue, err)
	}

	if _, err := ch.QueueDeclare(t.HistoricalQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", t.HistoricalQueue, err)
	}
	if err := ch.QueueBind(t.HistoricalQueue, t.HistoricalKey, t.SensorExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", t.HistoricalQueue, err)
	}

	if _, err := ch.QueueDeclare(t.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", t.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(t.DeadLetterQueue, t.DeadLetterKey, t.DLXExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", t.DeadLetterQueue, err)
	}

	// Delivery queues for downstream notification consumers.
	for _, binding := range []struct {
		queue string
		key   string
	}{
		{t.EmailQueue, t.EmailKey},
		{t.SMSQueue, t.SMSKey},
	} {
		if _, err := ch.QueueDeclare(binding.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", binding.queue, err)
		}
		if err := ch.QueueBind(binding.queue, binding.key, t.AlertsExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", binding.queue, err)
		}
	}

	return nil
}
