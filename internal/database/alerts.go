package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"climate-monitor/internal/events"
)

var (
	// ErrAlertNotFound is returned when an alert ID does not exist.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrInvalidTransition is returned when a status update would violate the
	// alert lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Alert represents an alert record in the database.
type Alert struct {
	AlertID   string
	ReadingID string
	SensorID  string
	SchoolID  string
	Kind      events.Kind
	Message   string
	Severity  events.Severity
	Status    events.Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InsertAlertDeduped inserts an alert unless an alert of the same kind
// already exists for the sensor within the dedup window. Suppression keys on
// (sensor, kind, window) alone; the alert lifecycle status does not reopen
// the window. The conditional insert is a single statement so concurrent
// workers cannot both slip past the window check. Returns true if a new row
// was inserted.
func (db *DB) InsertAlertDeduped(ctx context.Context, tx *sql.Tx, alert *Alert, window time.Duration) (bool, error) {
	query := `
		INSERT INTO alerts (alert_id, reading_id, sensor_id, school_id, alert_type, message, level, status)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM alerts
			WHERE sensor_id = $3
			  AND alert_type = $5
			  AND created_at > NOW() - $9::interval
		)
	`

	result, err := tx.ExecContext(ctx, query,
		alert.AlertID,
		alert.ReadingID,
		alert.SensorID,
		alert.SchoolID,
		string(alert.Kind),
		alert.Message,
		string(alert.Severity),
		string(events.StatusIssued),
		window.String(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		slog.Debug("Alert suppressed by dedup window",
			"sensor_id", alert.SensorID,
			"alert_type", alert.Kind,
		)
		return false, nil
	}

	slog.Info("Inserted new alert",
		"alert_id", alert.AlertID,
		"sensor_id", alert.SensorID,
		"alert_type", alert.Kind,
		"level", alert.Severity,
	)

	return true, nil
}

// RecentAlertExists reports whether an alert of the given kind exists for the
// sensor within the window, regardless of its lifecycle status.
func (db *DB) RecentAlertExists(ctx context.Context, sensorID string, kind events.Kind, window time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE sensor_id = $1
			  AND alert_type = $2
			  AND created_at > NOW() - $3::interval
		)
	`

	var exists bool
	err := db.conn.QueryRowContext(ctx, query, sensorID, string(kind), window.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recent alerts: %w", err)
	}

	return exists, nil
}

// UpdateAlertStatus moves an alert to a new lifecycle status, validating the
// transition against the current status inside a transaction.
func (db *DB) UpdateAlertStatus(ctx context.Context, alertID string, newStatus events.Status) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}

	return db.RunInTx(ctx, func(tx *sql.Tx) error {
		var current events.Status
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM alerts WHERE alert_id = $1 FOR UPDATE`,
			alertID,
		).Scan(&current)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
		}
		if err != nil {
			return fmt.Errorf("failed to get alert status: %w", err)
		}

		if !current.CanTransitionTo(newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, newStatus)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE alerts SET status = $2, updated_at = NOW() WHERE alert_id = $1`,
			alertID, string(newStatus),
		)
		if err != nil {
			return fmt.Errorf("failed to update alert status: %w", err)
		}

		slog.Debug("Updated alert status",
			"alert_id", alertID,
			"from", current,
			"to", newStatus,
		)

		return nil
	})
}

// CountActiveAlerts returns the number of unresolved alerts for a school.
func (db *DB) CountActiveAlerts(ctx context.Context, schoolID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM alerts
		WHERE school_id = $1
		  AND status IN ('ISSUED', 'IN_PROGRESS')
	`

	var count int
	if err := db.conn.QueryRowContext(ctx, query, schoolID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active alerts: %w", err)
	}

	return count, nil
}

// PurgeResolvedBefore deletes resolved and cancelled alerts older than the
// cutoff. Returns the number of deleted rows.
func (db *DB) PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM alerts
		WHERE status IN ('RESOLVED', 'CANCELLED')
		  AND updated_at < $1
	`

	result, err := db.conn.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge alerts: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		slog.Info("Purged resolved alerts", "deleted", deleted, "cutoff", cutoff)
	}

	return deleted, nil
}
