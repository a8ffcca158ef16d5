// Package directory resolves sensor IDs to their registration records,
// caching lookups in Redis so steady-state ingestion does not hit the
// database for every reading.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"climate-monitor/internal/database"
)

// ErrSensorInactive is returned when a sensor is registered but disabled.
var ErrSensorInactive = errors.New("sensor is inactive")

// ErrCacheMiss is returned by a Cache when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// DefaultCacheTTL bounds how stale a cached sensor record can get.
const DefaultCacheTTL = 5 * time.Minute

// Store provides sensor lookups from the system of record.
type Store interface {
	GetSensor(ctx context.Context, sensorID string) (*database.Sensor, error)
}

// Cache is a string key-value cache with TTL. Implementations must return
// ErrCacheMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Directory looks up sensors through a cache-aside pattern. A nil cache or a
// failing cache degrades to direct store reads.
type Directory struct {
	store Store
	cache Cache
	ttl   time.Duration
}

// New creates a sensor directory. cache may be nil.
func New(store Store, cache Cache) (*Directory, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	return &Directory{
		store: store,
		cache: cache,
		ttl:   DefaultCacheTTL,
	}, nil
}

// SetCacheTTL overrides the cache entry lifetime.
func (d *Directory) SetCacheTTL(ttl time.Duration) {
	d.ttl = ttl
}

// Lookup resolves a sensor ID to its registration record. Returns
// database.ErrSensorNotFound for unknown sensors and ErrSensorInactive for
// disabled ones. Cache failures are logged and fall through to the store.
func (d *Directory) Lookup(ctx context.Context, sensorID string) (*database.Sensor, error) {
	if sensor, ok := d.fromCache(ctx, sensorID); ok {
		return d.checkActive(sensor)
	}

	sensor, err := d.store.GetSensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}

	d.toCache(ctx, sensorID, sensor)

	return d.checkActive(sensor)
}

func (d *Directory) checkActive(sensor *database.Sensor) (*database.Sensor, error) {
	if !sensor.Active {
		return nil, fmt.Errorf("%w: %s", ErrSensorInactive, sensor.SensorID)
	}
	return sensor, nil
}

func (d *Directory) fromCache(ctx context.Context, sensorID string) (*database.Sensor, bool) {
	if d.cache == nil {
		return nil, false
	}

	raw, err := d.cache.Get(ctx, cacheKey(sensorID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			slog.Warn("Sensor cache read failed, falling back to database",
				"sensor_id", sensorID,
				"error", err,
			)
		}
		return nil, false
	}

	var sensor database.Sensor
	if err := json.Unmarshal([]byte(raw), &sensor); err != nil {
		slog.Warn("Corrupt sensor cache entry, falling back to database",
			"sensor_id", sensorID,
			"error", err,
		)
		return nil, false
	}

	return &sensor, true
}

func (d *Directory) toCache(ctx context.Context, sensorID string, sensor *database.Sensor) {
	if d.cache == nil {
		return
	}

	data, err := json.Marshal(sensor)
	if err != nil {
		slog.Warn("Failed to marshal sensor for cache", "sensor_id", sensorID, "error", err)
		return
	}

	if err := d.cache.Set(ctx, cacheKey(sensorID), string(data), d.ttl); err != nil {
		slog.Warn("Sensor cache write failed", "sensor_id", sensorID, "error", err)
	}
}

func cacheKey(sensorID string) string {
	return "sensor:" + sensorID
}
