// Package router publishes alert envelopes to the alerts exchange using
// severity-based routing keys. Publishing is best effort: the alert is
// already persisted, so a broker hiccup is logged rather than escalated.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"climate-monitor/internal/events"
	"climate-monitor/internal/metrics"
)

// Routing keys on the alerts exchange.
const (
	KeyCritical = "alerts.critical"
	KeyHigh     = "alerts.high"
	KeyMedium   = "alerts.medium"
	KeyLow      = "alerts.low"
	KeyGeneral  = "alerts.general"

	KeyMaintenance = "alerts.maintenance"
	KeySecurity    = "alerts.security"
	KeySystem      = "alerts.system"
)

// Publisher publishes a message body under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Router routes alert envelopes to the alerts exchange.
type Router struct {
	publisher Publisher
	metrics   metrics.Recorder
}

// New creates an alert router.
func New(publisher Publisher, recorder metrics.Recorder) (*Router, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	if recorder == nil {
		recorder = metrics.NewNoOp()
	}
	return &Router{publisher: publisher, metrics: recorder}, nil
}

// RoutingKeyFor maps a severity to its routing key. Unknown severities fall
// back to the general key so no alert is ever dropped for a bad label.
func RoutingKeyFor(severity events.Severity) string {
	switch severity {
	case events.SeverityCritical:
		return KeyCritical
	case events.SeverityHigh:
		return KeyHigh
	case events.SeverityMedium:
		return KeyMedium
	case events.SeverityLow:
		return KeyLow
	default:
		return KeyGeneral
	}
}

// Publish routes an envelope by its severity.
func (r *Router) Publish(ctx context.Context, envelope *events.AlertEnvelope) {
	r.publish(ctx, RoutingKeyFor(envelope.Level), envelope)
}

// PublishMaintenance routes a sensor health notification.
func (r *Router) PublishMaintenance(ctx context.Context, envelope *events.AlertEnvelope) {
	r.publish(ctx, KeyMaintenance, envelope)
}

// PublishSecurity routes a sensor tamper notification.
func (r *Router) PublishSecurity(ctx context.Context, envelope *events.AlertEnvelope) {
	r.publish(ctx, KeySecurity, envelope)
}

// PublishSystem routes a pipeline failure notification.
func (r *Router) PublishSystem(ctx context.Context, envelope *events.AlertEnvelope) {
	r.publish(ctx, KeySystem, envelope)
}

func (r *Router) publish(ctx context.Context, routingKey string, envelope *events.AlertEnvelope) {
	body, err := json.Marshal(envelope)
	if err != nil {
		r.metrics.RecordPublishFailed()
		slog.Error("Failed to marshal alert envelope",
			"alert_id", envelope.AlertID,
			"error", err,
		)
		return
	}

	if err := r.publisher.Publish(ctx, routingKey, body); err != nil {
		r.metrics.RecordPublishFailed()
		slog.Error("Failed to publish alert",
			"alert_id", envelope.AlertID,
			"routing_key", routingKey,
			"error", err,
		)
		return
	}

	r.metrics.RecordPublished()
	slog.Info("Published alert",
		"alert_id", envelope.AlertID,
		"routing_key", routingKey,
		"alert_type", envelope.AlertType,
		"level", envelope.Level,
	)
}
