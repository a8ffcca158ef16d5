// Package validator checks structural and physical-range validity of inbound
// sensor readings before they enter the pipeline.
package validator

import (
	"errors"
	"fmt"
	"time"

	"climate-monitor/internal/events"
)

// Physical domains for the supported measurements.
const (
	MinTemperature = -50.0
	MaxTemperature = 70.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0

	// MaxClockSkew is how far ahead of processing time a reading timestamp
	// may be before it is rejected.
	MaxClockSkew = 5 * time.Minute
)

// Validation sentinels. Callers classify failures with errors.Is; every
// validation failure is permanent and must not be retried.
var (
	ErrMissingField    = errors.New("missing required field")
	ErrOutOfRange      = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp too far in the future")
)

// Validate checks the reading against the required-field and physical-range
// rules. A nil timestamp is not an error: the gateway stamps it with
// processing time. Validate has no side effects.
func Validate(r *events.SensorReading, now time.Time) error {
	if r.SensorID == "" {
		return fmt.Errorf("%w: sensor_id", ErrMissingField)
	}
	if r.Temperature == nil {
		return fmt.Errorf("%w: temperature", ErrMissingField)
	}
	if r.Humidity == nil {
		return fmt.Errorf("%w: humidity", ErrMissingField)
	}

	if *r.Temperature < MinTemperature || *r.Temperature > MaxTemperature {
		return fmt.Errorf("%w: temperature %.1f outside [%.0f, %.0f]",
			ErrOutOfRange, *r.Temperature, MinTemperature, MaxTemperature)
	}
	if *r.Humidity < MinHumidity || *r.Humidity > MaxHumidity {
		return fmt.Errorf("%w: humidity %.1f outside [%.0f, %.0f]",
			ErrOutOfRange, *r.Humidity, MinHumidity, MaxHumidity)
	}

	if r.Timestamp != nil && r.Timestamp.After(now.Add(MaxClockSkew)) {
		return fmt.Errorf("%w: %s is more than %s ahead",
			ErrFutureTimestamp, r.Timestamp.Format(time.RFC3339), MaxClockSkew)
	}

	return nil
}
