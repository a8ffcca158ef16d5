package events

// Severity is the closed set of alert severity levels.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Priority derives the numeric notification priority from the severity.
// Lower numbers are more urgent. Unrecognized severities map to the
// medium priority so a malformed level never silently outranks critical.
func (s Severity) Priority() int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 4
	default:
		return 3
	}
}

// Kind is the closed set of alert types the pipeline can emit.
type Kind string

const (
	// Threshold alert kinds produced by the rule engine.
	KindExtremeHeat         Kind = "EXTREME_HEAT"
	KindIntenseHeat         Kind = "INTENSE_HEAT"
	KindElevatedTemperature Kind = "ELEVATED_TEMPERATURE"
	KindLowHumidity         Kind = "LOW_HUMIDITY"
	KindHighHumidity        Kind = "HIGH_HUMIDITY"
	KindHeatIndexCombined   Kind = "HEAT_INDEX_COMBINED"

	// Side-channel kinds raised by the gateway's sensor condition checks.
	KindLowBattery  Kind = "LOW_BATTERY"
	KindWeakSignal  Kind = "WEAK_SIGNAL"
	KindSensorMoved Kind = "SENSOR_MOVED"

	// Operational kind raised by the dead-letter handler.
	KindProcessingFailed Kind = "MESSAGE_PROCESSING_FAILED"
)

// Valid reports whether k is one of the known alert kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindExtremeHeat, KindIntenseHeat, KindElevatedTemperature,
		KindLowHumidity, KindHighHumidity, KindHeatIndexCombined,
		KindLowBattery, KindWeakSignal, KindSensorMoved, KindProcessingFailed:
		return true
	default:
		return false
	}
}
