package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"climate-monitor/internal/events"
)

type fakePublisher struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, routingKey)
	f.bodies = append(f.bodies, body)
	return nil
}

func TestRoutingKeyFor(t *testing.T) {
	tests := []struct {
		severity events.Severity
		want     string
	}{
		{events.SeverityCritical, "alerts.critical"},
		{events.SeverityHigh, "alerts.high"},
		{events.SeverityMedium, "alerts.medium"},
		{events.SeverityLow, "alerts.low"},
		{events.Severity("BOGUS"), "alerts.general"},
		{events.Severity(""), "alerts.general"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			if got := RoutingKeyFor(tt.severity); got != tt.want {
				t.Errorf("RoutingKeyFor(%q) = %q, want %q", tt.severity, got, tt.want)
			}
		})
	}
}

func TestNew_NilPublisher(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil) error = nil, want error")
	}
}

func TestPublish_RoutesBySeverity(t *testing.T) {
	pub := &fakePublisher{}
	r, err := New(pub, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r.Publish(context.Background(), &events.AlertEnvelope{
		AlertID:   "alert-1",
		SensorID:  "sensor-1",
		AlertType: events.KindExtremeHeat,
		Level:     events.SeverityCritical,
	})

	if len(pub.keys) != 1 || pub.keys[0] != KeyCritical {
		t.Fatalf("published keys = %v, want [alerts.critical]", pub.keys)
	}

	var got events.AlertEnvelope
	if err := json.Unmarshal(pub.bodies[0], &got); err != nil {
		t.Fatalf("published body is not valid JSON: %v", err)
	}
	if got.AlertID != "alert-1" {
		t.Errorf("published AlertID = %q, want alert-1", got.AlertID)
	}
}

func TestPublish_FixedKeys(t *testing.T) {
	pub := &fakePublisher{}
	r, _ := New(pub, nil)
	ctx := context.Background()

	// Fixed routing keys ignore envelope severity.
	env := &events.AlertEnvelope{AlertID: "alert-1", Level: events.SeverityCritical}
	r.PublishMaintenance(ctx, env)
	r.PublishSecurity(ctx, env)
	r.PublishSystem(ctx, env)

	want := []string{KeyMaintenance, KeySecurity, KeySystem}
	if len(pub.keys) != len(want) {
		t.Fatalf("published keys = %v, want %v", pub.keys, want)
	}
	for i, key := range want {
		if pub.keys[i] != key {
			t.Errorf("key[%d] = %q, want %q", i, pub.keys[i], key)
		}
	}
}

func TestPublish_BrokerFailureDoesNotPanic(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	r, _ := New(pub, nil)

	// Best effort: the call returns normally and nothing is recorded as sent.
	r.Publish(context.Background(), &events.AlertEnvelope{
		AlertID: "alert-1",
		Level:   events.SeverityHigh,
	})

	if len(pub.keys) != 0 {
		t.Errorf("published keys = %v, want none on failure", pub.keys)
	}
}
