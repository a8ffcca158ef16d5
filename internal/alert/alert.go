// Package alert turns rule candidates into persisted alerts and outbound
// notification envelopes. Readings and their alerts are stored in a single
// transaction, with the deduplication window enforced by the conditional
// insert in the database layer.
package alert

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"climate-monitor/internal/database"
	"climate-monitor/internal/events"
	"climate-monitor/internal/metrics"
)

// DefaultDedupWindow silences repeat alerts of the same kind per sensor.
const DefaultDedupWindow = 30 * time.Minute

// Store provides the persistence operations the builder needs.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	SaveReading(ctx context.Context, tx *sql.Tx, reading *events.SensorReading) (string, error)
	InsertAlertDeduped(ctx context.Context, tx *sql.Tx, alert *database.Alert, window time.Duration) (bool, error)
	RecentAlertExists(ctx context.Context, sensorID string, kind events.Kind, window time.Duration) (bool, error)
}

// TextGenerator produces alert text from a candidate and its context.
type TextGenerator interface {
	Generate(ctx context.Context, candidate events.AlertCandidate, schoolName, location string, temperature, humidity *float64) (string, error)
}

// Builder persists alerts and builds their notification envelopes.
type Builder struct {
	store   Store
	gen     TextGenerator
	window  time.Duration
	metrics metrics.Recorder
}

// NewBuilder creates an alert builder. gen may be nil, in which case every
// alert carries its template message.
func NewBuilder(store Store, gen TextGenerator, window time.Duration, recorder metrics.Recorder) (*Builder, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if recorder == nil {
		recorder = metrics.NewNoOp()
	}

	return &Builder{
		store:   store,
		gen:     gen,
		window:  window,
		metrics: recorder,
	}, nil
}

// Persist stores the reading and any candidates that survive deduplication,
// all within one transaction, and returns envelopes for the created alerts.
// Suppressed candidates are dropped silently.
func (b *Builder) Persist(ctx context.Context, reading *events.SensorReading, sensor *database.Sensor, candidates []events.AlertCandidate) ([]*events.AlertEnvelope, error) {
	// Text generation happens before the transaction so a slow model never
	// holds database locks. Candidates already inside the window are skipped
	// to avoid wasted generation calls; the conditional insert remains the
	// authoritative guard under concurrency.
	messages := make([]string, len(candidates))
	for i, candidate := range candidates {
		if exists, err := b.store.RecentAlertExists(ctx, candidate.SensorID, candidate.Kind, b.window); err == nil && exists {
			messages[i] = ""
			continue
		}
		messages[i] = b.messageFor(ctx, candidate, sensor, reading)
	}

	var envelopes []*events.AlertEnvelope
	err := b.store.RunInTx(ctx, func(tx *sql.Tx) error {
		envelopes = envelopes[:0]

		readingID, err := b.store.SaveReading(ctx, tx, reading)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for i, candidate := range candidates {
			message := messages[i]
			if message == "" {
				// Pre-check saw a live duplicate; still counts as suppressed.
				b.metrics.RecordAlertSuppressed()
				continue
			}

			record := &database.Alert{
				AlertID:   uuid.NewString(),
				ReadingID: readingID,
				SensorID:  candidate.SensorID,
				SchoolID:  sensor.SchoolID,
				Kind:      candidate.Kind,
				Message:   message,
				Severity:  candidate.Severity,
			}

			created, err := b.store.InsertAlertDeduped(ctx, tx, record, b.window)
			if err != nil {
				return err
			}
			if !created {
				b.metrics.RecordAlertSuppressed()
				continue
			}

			b.metrics.RecordAlertIssued()
			envelopes = append(envelopes, b.toEnvelope(record, readingID, sensor, reading, now))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return envelopes, nil
}

// messageFor returns AI-generated text when the generator is available and
// succeeds, otherwise the deterministic template. Generation failures never
// block alert creation.
func (b *Builder) messageFor(ctx context.Context, candidate events.AlertCandidate, sensor *database.Sensor, reading *events.SensorReading) string {
	if b.gen == nil {
		return candidate.TemplateMessage
	}

	text, err := b.gen.Generate(ctx, candidate, sensor.SchoolName, sensor.Location, reading.Temperature, reading.Humidity)
	if err != nil {
		slog.Warn("Text generation failed, using template message",
			"sensor_id", candidate.SensorID,
			"alert_type", candidate.Kind,
			"error", err,
		)
		return candidate.TemplateMessage
	}

	return text
}

func (b *Builder) toEnvelope(record *database.Alert, readingID string, sensor *database.Sensor, reading *events.SensorReading, now time.Time) *events.AlertEnvelope {
	return &events.AlertEnvelope{
		AlertID:        record.AlertID,
		ReadingID:      readingID,
		SensorID:       record.SensorID,
		SchoolID:       sensor.SchoolID,
		AlertType:      record.Kind,
		Message:        record.Message,
		Level:          record.Severity,
		Status:         events.StatusIssued,
		Timestamp:      now,
		SchoolName:     sensor.SchoolName,
		SensorLocation: sensor.Location,
		Temperature:    reading.Temperature,
		Humidity:       reading.Humidity,
		Priority:       record.Severity.Priority(),
	}
}
