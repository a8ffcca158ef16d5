// Package config provides configuration parsing and validation for the
// climate monitor service.
package config

import (
	"fmt"
	"time"

	"climate-monitor/internal/rabbit"
)

// Config holds all configuration parameters for the climate monitor.
type Config struct {
	AMQPURL     string
	PostgresDSN string
	RedisAddr   string

	Workers  int
	Prefetch int

	DedupWindow      time.Duration
	RetentionHorizon time.Duration
	PurgeInterval    time.Duration

	TempCritical     float64
	TempHigh         float64
	TempElevated     float64
	HumidityLow      float64
	HumidityHigh     float64
	HumidityCombined float64

	AIEndpoint string
	AIAPIKey   string
	AITimeout  time.Duration
}

// Validate checks that all required configuration fields are set and have
// valid values. Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.AMQPURL == "" {
		return fmt.Errorf("amqp-url cannot be empty")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres-dsn cannot be empty")
	}
	if c.Workers < rabbit.MinWorkers || c.Workers > rabbit.MaxWorkers {
		return fmt.Errorf("workers must be between %d and %d", rabbit.MinWorkers, rabbit.MaxWorkers)
	}
	if c.Prefetch <= 0 {
		return fmt.Errorf("prefetch must be positive")
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("dedup-window must be positive")
	}
	if c.RetentionHorizon <= 0 {
		return fmt.Errorf("retention-horizon must be positive")
	}
	if c.PurgeInterval <= 0 {
		return fmt.Errorf("purge-interval must be positive")
	}
	if c.TempCritical <= c.TempHigh || c.TempHigh <= c.TempElevated {
		return fmt.Errorf("temperature thresholds must be strictly ordered: critical > high > elevated")
	}
	if c.HumidityLow >= c.HumidityHigh {
		return fmt.Errorf("humidity-low must be below humidity-high")
	}
	if c.AIEndpoint != "" && c.AITimeout <= 0 {
		return fmt.Errorf("ai-timeout must be positive when ai-endpoint is set")
	}
	return nil
}
