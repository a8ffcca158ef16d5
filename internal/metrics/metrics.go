// Package metrics provides metrics recording for the ingestion pipeline.
// It uses the null object pattern so callers never need nil checks.
package metrics

import "time"

// Recorder defines the interface for recording pipeline metrics.
type Recorder interface {
	// RecordReceived increments the count of consumed reading messages.
	RecordReceived()

	// RecordProcessed records a fully processed message with its latency.
	RecordProcessed(latency time.Duration)

	// RecordDropped increments the count of permanently failed messages
	// that were acknowledged and discarded.
	RecordDropped()

	// RecordRetried increments the count of messages negatively
	// acknowledged for broker redelivery.
	RecordRetried()

	// RecordAlertIssued increments the count of persisted alerts.
	RecordAlertIssued()

	// RecordAlertSuppressed increments the count of candidates silenced by
	// the deduplication window.
	RecordAlertSuppressed()

	// RecordPublished increments the count of published notifications.
	RecordPublished()

	// RecordPublishFailed increments the count of failed publishes.
	RecordPublishFailed()

	// RecordDeadLettered increments the count of messages handled off the
	// dead-letter queue.
	RecordDeadLettered()

	// RecordError increments the general processing-error counter.
	RecordError()
}

// NoOp is a no-op implementation of Recorder that discards all metrics.
type NoOp struct{}

// NewNoOp creates a new no-op metrics recorder.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) RecordReceived()                 {}
func (n *NoOp) RecordProcessed(_ time.Duration) {}
func (n *NoOp) RecordDropped()                  {}
func (n *NoOp) RecordRetried()                  {}
func (n *NoOp) RecordAlertIssued()              {}
func (n *NoOp) RecordAlertSuppressed()          {}
func (n *NoOp) RecordPublished()                {}
func (n *NoOp) RecordPublishFailed()            {}
func (n *NoOp) RecordDeadLettered()             {}
func (n *NoOp) RecordError()                    {}

var _ Recorder = (*NoOp)(nil)
