// Package deadletter drains the dead-letter queue, raising an operational
// alert for every message that exhausted its processing budget. Dead-lettered
// messages are never re-injected into the readings queue.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"climate-monitor/internal/alert"
	"climate-monitor/internal/events"
	"climate-monitor/internal/metrics"
)

// SystemRouter publishes system alerts to the operations routing key.
type SystemRouter interface {
	PublishSystem(ctx context.Context, envelope *events.AlertEnvelope)
}

// Handler consumes dead-lettered deliveries.
type Handler struct {
	router  SystemRouter
	metrics metrics.Recorder
	now     func() time.Time
}

// NewHandler creates a dead-letter handler.
func NewHandler(router SystemRouter, recorder metrics.Recorder) (*Handler, error) {
	if router == nil {
		return nil, fmt.Errorf("router cannot be nil")
	}
	if recorder == nil {
		recorder = metrics.NewNoOp()
	}
	return &Handler{
		router:  router,
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Handle raises a system alert for the dead-lettered message and always acks
// it. The dead-letter queue must drain even when the alert publish fails.
func (h *Handler) Handle(ctx context.Context, delivery amqp.Delivery) {
	h.metrics.RecordDeadLettered()

	sensorID := extractSensorID(delivery.Body)
	reason := deathReason(delivery.Headers)

	slog.Warn("Reading dead-lettered",
		"sensor_id", sensorID,
		"reason", reason,
		"bytes", len(delivery.Body),
	)

	h.router.PublishSystem(ctx, alert.SystemEnvelope(sensorID, reason, h.now()))

	if err := delivery.Ack(false); err != nil {
		slog.Error("Failed to ack dead-lettered delivery",
			"delivery_tag", delivery.DeliveryTag,
			"error", err,
		)
	}
}

// extractSensorID makes a best-effort attempt to recover the sensor ID from
// the dead message. The body may be arbitrary garbage.
func extractSensorID(body []byte) string {
	var partial struct {
		SensorID string `json:"sensor_id"`
	}
	if err := json.Unmarshal(body, &partial); err != nil {
		return "unknown"
	}
	if partial.SensorID == "" {
		return "unknown"
	}
	return partial.SensorID
}

// deathReason reads the broker's x-death header to report why the message
// was dead-lettered.
func deathReason(headers amqp.Table) string {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok || len(deaths) == 0 {
		return "processing failed"
	}

	death, ok := deaths[0].(amqp.Table)
	if !ok {
		return "processing failed"
	}

	reason, ok := death["reason"].(string)
	if !ok || reason == "" {
		return "processing failed"
	}

	switch reason {
	case "rejected":
		return "rejected after retry"
	case "expired":
		return "expired in queue"
	case "maxlen":
		return "queue overflow"
	default:
		return reason
	}
}
