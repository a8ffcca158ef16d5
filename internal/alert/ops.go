package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"climate-monitor/internal/database"
	"climate-monitor/internal/events"
)

// MaintenanceEnvelope builds a notification for a sensor health condition
// such as a low battery or weak signal. These are published but not stored,
// so the operations queue sees every occurrence.
func MaintenanceEnvelope(kind events.Kind, sensor *database.Sensor, reading *events.SensorReading, now time.Time) *events.AlertEnvelope {
	var message string
	metadata := make(map[string]string)

	switch kind {
	case events.KindLowBattery:
		message = fmt.Sprintf("Sensor %s at %s (%s) reports low battery: %d%%.",
			reading.SensorID, sensor.SchoolName, sensor.Location, *reading.BatteryLevel)
		metadata["battery_level"] = fmt.Sprintf("%d", *reading.BatteryLevel)
	case events.KindWeakSignal:
		message = fmt.Sprintf("Sensor %s at %s (%s) reports weak signal: %d dBm.",
			reading.SensorID, sensor.SchoolName, sensor.Location, *reading.SignalStrength)
		metadata["signal_strength"] = fmt.Sprintf("%d", *reading.SignalStrength)
	default:
		message = fmt.Sprintf("Sensor %s at %s (%s) requires maintenance: %s.",
			reading.SensorID, sensor.SchoolName, sensor.Location, kind)
	}

	return &events.AlertEnvelope{
		AlertID:        uuid.NewString(),
		SensorID:       reading.SensorID,
		SchoolID:       sensor.SchoolID,
		AlertType:      kind,
		Message:        message,
		Level:          events.SeverityLow,
		Status:         events.StatusIssued,
		Timestamp:      now,
		SchoolName:     sensor.SchoolName,
		SensorLocation: sensor.Location,
		Metadata:       metadata,
		Priority:       events.SeverityLow.Priority(),
	}
}

// SecurityEnvelope builds a notification for a reading whose reported
// location disagrees with the sensor's registered location.
func SecurityEnvelope(sensor *database.Sensor, reading *events.SensorReading, now time.Time) *events.AlertEnvelope {
	return &events.AlertEnvelope{
		AlertID:   uuid.NewString(),
		SensorID:  reading.SensorID,
		SchoolID:  sensor.SchoolID,
		AlertType: events.KindSensorMoved,
		Message: fmt.Sprintf("Sensor %s reported location %q but is registered at %q (%s).",
			reading.SensorID, reading.Location, sensor.Location, sensor.SchoolName),
		Level:          events.SeverityMedium,
		Status:         events.StatusIssued,
		Timestamp:      now,
		SchoolName:     sensor.SchoolName,
		SensorLocation: sensor.Location,
		Metadata: map[string]string{
			"reported_location":   reading.Location,
			"registered_location": sensor.Location,
		},
		Priority: events.SeverityMedium.Priority(),
	}
}

// SystemEnvelope builds a notification for a pipeline failure, used by the
// dead-letter handler to surface messages that exhausted their retry budget.
func SystemEnvelope(sensorID, reason string, now time.Time) *events.AlertEnvelope {
	return &events.AlertEnvelope{
		AlertID:   uuid.NewString(),
		SensorID:  sensorID,
		AlertType: events.KindProcessingFailed,
		Message:   fmt.Sprintf("Reading could not be processed after retries: %s", reason),
		Level:     events.SeverityHigh,
		Status:    events.StatusIssued,
		Timestamp: now,
		Metadata: map[string]string{
			"reason": reason,
		},
		Priority: events.SeverityHigh.Priority(),
	}
}
