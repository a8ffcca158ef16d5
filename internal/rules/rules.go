// Package rules evaluates validated readings against the climate threshold
// table and produces alert candidates.
package rules

import (
	"fmt"

	"climate-monitor/internal/events"
)

// Thresholds holds the rule-table boundaries. All comparisons against them
// are inclusive.
type Thresholds struct {
	// Temperature tiers, most severe first. Tiers are mutually exclusive:
	// a reading lands in at most one.
	TempCritical float64 // >= : extreme heat, critical
	TempHigh     float64 // >= : intense heat, high
	TempElevated float64 // >= : elevated temperature, medium

	// Humidity rules, independent of the temperature tier.
	HumidityLow  float64 // <= : low humidity, medium
	HumidityHigh float64 // >= : high humidity, medium

	// Combined heat-index rule: temperature >= TempElevated AND
	// humidity >= HumidityCombined.
	HumidityCombined float64
}

// DefaultThresholds returns the standard rule table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempCritical:     35.0,
		TempHigh:         30.0,
		TempElevated:     28.0,
		HumidityLow:      30.0,
		HumidityHigh:     80.0,
		HumidityCombined: 70.0,
	}
}

// SensorContext carries the sensor/school details woven into the
// deterministic fallback message of each candidate.
type SensorContext struct {
	SchoolName string
	Location   string
}

// Engine evaluates readings against a fixed threshold table.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates a rule engine with the given thresholds.
func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Evaluate returns the alert candidates a reading triggers: at most one
// temperature tier, at most one humidity rule, and the combined heat-index
// rule, in that order. The humidity and combined rules fire independently of
// the temperature tier, so a single reading can yield up to three candidates.
func (e *Engine) Evaluate(r *events.SensorReading, sctx SensorContext) []events.AlertCandidate {
	temp := *r.Temperature
	humidity := *r.Humidity

	var candidates []events.AlertCandidate
	add := func(kind events.Kind, severity events.Severity, description string) {
		candidates = append(candidates, events.AlertCandidate{
			SensorID:        r.SensorID,
			Kind:            kind,
			Severity:        severity,
			TemplateMessage: templateMessage(kind, severity, sctx, temp, humidity, description),
		})
	}

	switch {
	case temp >= e.thresholds.TempCritical:
		add(events.KindExtremeHeat, events.SeverityCritical,
			"Critical temperature detected. Extreme risk to student health.")
	case temp >= e.thresholds.TempHigh:
		add(events.KindIntenseHeat, events.SeverityHigh,
			"Very high temperature detected. Preventive measures required.")
	case temp >= e.thresholds.TempElevated:
		add(events.KindElevatedTemperature, events.SeverityMedium,
			"Temperature above the comfort range. Monitoring recommended.")
	}

	switch {
	case humidity <= e.thresholds.HumidityLow:
		add(events.KindLowHumidity, events.SeverityMedium,
			"Very low humidity detected. May cause respiratory discomfort.")
	case humidity >= e.thresholds.HumidityHigh:
		add(events.KindHighHumidity, events.SeverityMedium,
			"Very high humidity detected. Rooms may become stuffy.")
	}

	if temp >= e.thresholds.TempElevated && humidity >= e.thresholds.HumidityCombined {
		add(events.KindHeatIndexCombined, events.SeverityHigh,
			"Combined heat and humidity. Perceived temperature is very uncomfortable.")
	}

	return candidates
}

// templateMessage builds the deterministic fallback text for a candidate.
// It always names the alert kind, the school, and the measured values so the
// message stays useful when AI text generation is unavailable.
func templateMessage(kind events.Kind, severity events.Severity, sctx SensorContext, temp, humidity float64, description string) string {
	return fmt.Sprintf(
		"%s ALERT: %s at %s (%s). Temperature: %.1f°C, humidity: %.1f%%. %s",
		severity, kind, sctx.SchoolName, sctx.Location, temp, humidity, description,
	)
}
