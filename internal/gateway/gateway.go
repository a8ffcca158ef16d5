// Package gateway processes inbound sensor readings: decode, validate,
// resolve the sensor, evaluate rules, persist alerts and publish
// notifications. It owns the ack/nack decision for every delivery.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"climate-monitor/internal/alert"
	"climate-monitor/internal/database"
	"climate-monitor/internal/directory"
	"climate-monitor/internal/events"
	"climate-monitor/internal/metrics"
	"climate-monitor/internal/rules"
	"climate-monitor/internal/validator"
)

// Directory resolves sensor IDs to registration records.
type Directory interface {
	Lookup(ctx context.Context, sensorID string) (*database.Sensor, error)
}

// Evaluator produces alert candidates from a validated reading.
type Evaluator interface {
	Evaluate(reading *events.SensorReading, sctx rules.SensorContext) []events.AlertCandidate
}

// Builder persists readings and their surviving alerts.
type Builder interface {
	Persist(ctx context.Context, reading *events.SensorReading, sensor *database.Sensor, candidates []events.AlertCandidate) ([]*events.AlertEnvelope, error)
}

// AlertRouter publishes alert envelopes to the alerts exchange.
type AlertRouter interface {
	Publish(ctx context.Context, envelope *events.AlertEnvelope)
	PublishMaintenance(ctx context.Context, envelope *events.AlertEnvelope)
	PublishSecurity(ctx context.Context, envelope *events.AlertEnvelope)
}

// Gateway handles deliveries from the readings queue.
type Gateway struct {
	directory Directory
	engine    Evaluator
	builder   Builder
	router    AlertRouter
	metrics   metrics.Recorder
	now       func() time.Time
}

// New creates a gateway.
func New(dir Directory, engine Evaluator, builder Builder, router AlertRouter, recorder metrics.Recorder) (*Gateway, error) {
	if dir == nil {
		return nil, fmt.Errorf("directory cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if builder == nil {
		return nil, fmt.Errorf("builder cannot be nil")
	}
	if router == nil {
		return nil, fmt.Errorf("router cannot be nil")
	}
	if recorder == nil {
		recorder = metrics.NewNoOp()
	}

	return &Gateway{
		directory: dir,
		engine:    engine,
		builder:   builder,
		router:    router,
		metrics:   recorder,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Handle processes one delivery and acks or nacks it. Permanent failures are
// acked and dropped so they never cycle; transient failures are nacked for
// one broker redelivery, then dead-lettered.
func (g *Gateway) Handle(ctx context.Context, delivery amqp.Delivery) {
	g.metrics.RecordReceived()
	start := g.now()

	err := g.process(ctx, delivery.Body)
	if err == nil {
		g.ack(delivery)
		g.metrics.RecordProcessed(g.now().Sub(start))
		return
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		slog.Warn("Dropping unprocessable reading",
			"reason", perm.reason,
			"error", err,
		)
		g.ack(delivery)
		g.metrics.RecordDropped()
		return
	}

	// Transient failure. First delivery goes back to the queue; a redelivered
	// message goes to the dead-letter exchange instead of cycling forever.
	requeue := !delivery.Redelivered
	slog.Error("Failed to process reading",
		"requeue", requeue,
		"error", err,
	)
	g.metrics.RecordError()

	if nackErr := delivery.Nack(false, requeue); nackErr != nil {
		slog.Error("Failed to nack delivery", "delivery_tag", delivery.DeliveryTag, "error", nackErr)
		return
	}
	if requeue {
		// The dead-letter handler counts the non-requeued path when the
		// message arrives on the DLQ.
		g.metrics.RecordRetried()
	}
}

func (g *Gateway) ack(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		slog.Error("Failed to ack delivery", "delivery_tag", delivery.DeliveryTag, "error", err)
	}
}

// permanentError marks failures that redelivery cannot fix.
type permanentError struct {
	reason string
	err    error
}

func (e *permanentError) Error() string {
	if e.err != nil {
		return e.reason + ": " + e.err.Error()
	}
	return e.reason
}

func (e *permanentError) Unwrap() error { return e.err }

func permanent(reason string, err error) error {
	return &permanentError{reason: reason, err: err}
}

func (g *Gateway) process(ctx context.Context, body []byte) error {
	var reading events.SensorReading
	if err := json.Unmarshal(body, &reading); err != nil {
		return permanent("malformed reading payload", err)
	}

	now := g.now()
	if reading.Timestamp == nil {
		// Sensors without clocks send no timestamp; stamp on arrival.
		reading.Timestamp = &now
	}

	if err := validator.Validate(&reading, now); err != nil {
		return permanent("reading failed validation", err)
	}

	sensor, err := g.directory.Lookup(ctx, reading.SensorID)
	if err != nil {
		if errors.Is(err, database.ErrSensorNotFound) || errors.Is(err, directory.ErrSensorInactive) {
			return permanent("unregistered or inactive sensor", err)
		}
		return fmt.Errorf("sensor lookup failed: %w", err)
	}

	candidates := g.engine.Evaluate(&reading, rules.SensorContext{
		SchoolName: sensor.SchoolName,
		Location:   sensor.Location,
	})

	envelopes, err := g.builder.Persist(ctx, &reading, sensor, candidates)
	if err != nil {
		return fmt.Errorf("failed to persist reading: %w", err)
	}

	// Sensor health and tamper checks run on every reading, independent of
	// the climate rules. They run after the save so a persist failure and
	// redelivery cannot publish them twice, and they never fail the message.
	g.sideChecks(ctx, sensor, &reading, now)

	for _, envelope := range envelopes {
		g.router.Publish(ctx, envelope)
	}

	return nil
}

func (g *Gateway) sideChecks(ctx context.Context, sensor *database.Sensor, reading *events.SensorReading, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Side check panicked", "sensor_id", reading.SensorID, "panic", r)
		}
	}()

	if reading.BatteryLow() {
		g.router.PublishMaintenance(ctx, alert.MaintenanceEnvelope(events.KindLowBattery, sensor, reading, now))
	}
	if reading.SignalWeak() {
		g.router.PublishMaintenance(ctx, alert.MaintenanceEnvelope(events.KindWeakSignal, sensor, reading, now))
	}
	if reading.Location != "" && reading.Location != sensor.Location {
		g.router.PublishSecurity(ctx, alert.SecurityEnvelope(sensor, reading, now))
	}
}
