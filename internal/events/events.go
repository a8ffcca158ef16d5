// Package events defines the wire-level event structures for the
// sensor.readings and alerts exchanges, together with the closed alert
// kind/severity/status vocabularies shared across the pipeline.
package events

import "time"

// SensorReading represents an inbound reading message from the
// sensor.readings queue. Temperature and humidity are pointers so that an
// absent field can be told apart from a legitimate zero value.
type SensorReading struct {
	SensorID       string     `json:"sensor_id"`
	Temperature    *float64   `json:"temperature"`
	Humidity       *float64   `json:"humidity"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	DeviceID       string     `json:"device_id,omitempty"`
	BatteryLevel   *int       `json:"battery_level,omitempty"`
	SignalStrength *int       `json:"signal_strength,omitempty"`
	Location       string     `json:"location,omitempty"`
}

const (
	// LowBatteryThreshold is the battery percentage below which a
	// maintenance notification is raised.
	LowBatteryThreshold = 20
	// WeakSignalThreshold is the signal strength (dBm) below which a
	// maintenance notification is raised.
	WeakSignalThreshold = -80
)

// BatteryLow reports whether the reading carries a battery level below the
// maintenance threshold. Readings without a battery level never qualify.
func (r *SensorReading) BatteryLow() bool {
	return r.BatteryLevel != nil && *r.BatteryLevel < LowBatteryThreshold
}

// SignalWeak reports whether the reading carries a signal strength below the
// maintenance threshold. Readings without a signal strength never qualify.
func (r *SensorReading) SignalWeak() bool {
	return r.SignalStrength != nil && *r.SignalStrength < WeakSignalThreshold
}

// AlertCandidate is a not-yet-persisted alert proposal produced by the rule
// engine for a single reading. Candidates are ephemeral: they either survive
// deduplication and become persisted alerts, or they are dropped.
type AlertCandidate struct {
	SensorID string
	Kind     Kind
	Severity Severity
	// TemplateMessage is the deterministic fallback text, built from
	// sensor/school context. The alert builder may replace it with
	// AI-generated text.
	TemplateMessage string
}

// AlertEnvelope is the outbound notification payload published to the alerts
// exchange once an alert has been persisted. It is transmitted, never stored.
type AlertEnvelope struct {
	AlertID        string            `json:"alert_id"`
	ReadingID      string            `json:"reading_id,omitempty"`
	SensorID       string            `json:"sensor_id"`
	SchoolID       string            `json:"school_id,omitempty"`
	AlertType      Kind              `json:"alert_type"`
	Message        string            `json:"message"`
	Level          Severity          `json:"level"`
	Status         Status            `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	SchoolName     string            `json:"school_name,omitempty"`
	SensorLocation string            `json:"sensor_location,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	Humidity       *float64          `json:"humidity,omitempty"`
	Recipients     []string          `json:"recipients,omitempty"`
	Channels       []string          `json:"notification_channels,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Priority       int               `json:"priority"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
}

// IsExpired reports whether the envelope carries an expiry in the past.
// Envelopes without an expiry never expire.
func (e *AlertEnvelope) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}
