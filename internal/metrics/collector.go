package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// metricsKey is the Redis key the collector writes its snapshot under.
	metricsKey = "metrics:climate-monitor"
	// metricsTTL is how long a snapshot stays in Redis if not refreshed,
	// so a dead process reads as stale rather than healthy.
	metricsTTL = 2 * time.Minute
	// DefaultReportInterval is the default interval for writing snapshots.
	DefaultReportInterval = 30 * time.Second
)

// Snapshot is the JSON document the collector periodically writes to Redis
// for dashboards and health tooling.
type Snapshot struct {
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`

	MessagesReceived  uint64 `json:"messages_received"`
	MessagesProcessed uint64 `json:"messages_processed"`
	MessagesDropped   uint64 `json:"messages_dropped"`
	MessagesRetried   uint64 `json:"messages_retried"`
	AlertsIssued      uint64 `json:"alerts_issued"`
	AlertsSuppressed  uint64 `json:"alerts_suppressed"`
	Published         uint64 `json:"published"`
	PublishFailures   uint64 `json:"publish_failures"`
	DeadLettered      uint64 `json:"dead_lettered"`
	ProcessingErrors  uint64 `json:"processing_errors"`

	AvgProcessingLatencyNs float64 `json:"avg_processing_latency_ns"`
}

// Collector is a Recorder that keeps atomic counters and periodically
// reports a snapshot to Redis.
type Collector struct {
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	received   atomic.Uint64
	processed  atomic.Uint64
	dropped    atomic.Uint64
	retried    atomic.Uint64
	issued     atomic.Uint64
	suppressed atomic.Uint64
	published  atomic.Uint64
	pubFailed  atomic.Uint64
	deadLetter atomic.Uint64
	errors     atomic.Uint64

	totalLatencyNs atomic.Uint64
	latencyCount   atomic.Uint64

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewCollector creates a metrics collector reporting to the given Redis
// client.
func NewCollector(redisClient *redis.Client) *Collector {
	return &Collector{
		redis:          redisClient,
		startedAt:      time.Now().UTC(),
		reportInterval: DefaultReportInterval,
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval overrides the snapshot reporting interval.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.reportInterval = interval
}

// Start begins periodic snapshot reporting until the context is cancelled
// or Stop is called.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.write(context.Background()) // final write
				return
			case <-c.stopCh:
				c.write(context.Background())
				return
			case <-ticker.C:
				c.write(ctx)
			}
		}
	}()
}

// Stop stops the reporting goroutine and flushes a final snapshot.
func (c *Collector) Stop() {
	c.once.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Collector) RecordReceived()        { c.received.Add(1) }
func (c *Collector) RecordDropped()         { c.dropped.Add(1) }
func (c *Collector) RecordRetried()         { c.retried.Add(1) }
func (c *Collector) RecordAlertIssued()     { c.issued.Add(1) }
func (c *Collector) RecordAlertSuppressed() { c.suppressed.Add(1) }
func (c *Collector) RecordPublished()       { c.published.Add(1) }
func (c *Collector) RecordPublishFailed()   { c.pubFailed.Add(1) }
func (c *Collector) RecordDeadLettered()    { c.deadLetter.Add(1) }
func (c *Collector) RecordError()           { c.errors.Add(1) }

func (c *Collector) RecordProcessed(latency time.Duration) {
	c.processed.Add(1)
	c.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	c.latencyCount.Add(1)
}

// GetSnapshot returns current counter values without writing to Redis.
func (c *Collector) GetSnapshot() *Snapshot {
	var avgLatencyNs float64
	if count := c.latencyCount.Load(); count > 0 {
		avgLatencyNs = float64(c.totalLatencyNs.Load()) / float64(count)
	}

	return &Snapshot{
		StartedAt:              c.startedAt,
		LastUpdated:            time.Now().UTC(),
		MessagesReceived:       c.received.Load(),
		MessagesProcessed:      c.processed.Load(),
		MessagesDropped:        c.dropped.Load(),
		MessagesRetried:        c.retried.Load(),
		AlertsIssued:           c.issued.Load(),
		AlertsSuppressed:       c.suppressed.Load(),
		Published:              c.published.Load(),
		PublishFailures:        c.pubFailed.Load(),
		DeadLettered:           c.deadLetter.Load(),
		ProcessingErrors:       c.errors.Load(),
		AvgProcessingLatencyNs: avgLatencyNs,
	}
}

// write serializes the snapshot and stores it in Redis.
func (c *Collector) write(ctx context.Context) {
	if c.redis == nil {
		return
	}

	snapshot := c.GetSnapshot()
	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("Failed to marshal metrics snapshot", "error", err)
		return
	}

	if err := c.redis.Set(ctx, metricsKey, data, metricsTTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "error", err)
		return
	}

	slog.Debug("Metrics written to Redis", "key", metricsKey)
}

var _ Recorder = (*Collector)(nil)
