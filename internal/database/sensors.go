package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSensorNotFound is returned when a sensor ID is not in the directory.
var ErrSensorNotFound = errors.New("sensor not found")

// Sensor represents a sensor record joined with its school.
type Sensor struct {
	SensorID   string    `json:"sensor_id"`
	SchoolID   string    `json:"school_id"`
	SchoolName string    `json:"school_name"`
	Location   string    `json:"location"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetSensor retrieves a sensor and its school by sensor ID.
// Returns ErrSensorNotFound if no such sensor is registered.
func (db *DB) GetSensor(ctx context.Context, sensorID string) (*Sensor, error) {
	query := `
		SELECT s.sensor_id, s.school_id, sc.name, s.location, s.latitude, s.longitude, s.active, s.created_at, s.updated_at
		FROM sensors s
		JOIN schools sc ON sc.school_id = s.school_id
		WHERE s.sensor_id = $1
	`
	var sensor Sensor
	err := db.conn.QueryRowContext(ctx, query, sensorID).Scan(
		&sensor.SensorID,
		&sensor.SchoolID,
		&sensor.SchoolName,
		&sensor.Location,
		&sensor.Latitude,
		&sensor.Longitude,
		&sensor.Active,
		&sensor.CreatedAt,
		&sensor.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSensorNotFound, sensorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}

	return &sensor, nil
}
