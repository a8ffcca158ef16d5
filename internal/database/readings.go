package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"climate-monitor/internal/events"
)

// SaveReading inserts a validated sensor reading inside the given transaction
// and returns the generated reading ID.
func (db *DB) SaveReading(ctx context.Context, tx *sql.Tx, reading *events.SensorReading) (string, error) {
	readingID := uuid.NewString()

	query := `
		INSERT INTO readings (reading_id, sensor_id, temperature, humidity, battery_level, signal_strength, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		readingID,
		reading.SensorID,
		reading.Temperature,
		reading.Humidity,
		reading.BatteryLevel,
		reading.SignalStrength,
		reading.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert reading: %w", err)
	}

	slog.Debug("Saved sensor reading",
		"reading_id", readingID,
		"sensor_id", reading.SensorID,
	)

	return readingID, nil
}
