package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"climate-monitor/internal/database"
	"climate-monitor/internal/directory"
	"climate-monitor/internal/events"
	"climate-monitor/internal/rules"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(_ uint64, _ bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

type fakeDirectory struct {
	sensor *database.Sensor
	err    error
}

func (f *fakeDirectory) Lookup(_ context.Context, _ string) (*database.Sensor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sensor, nil
}

type fakeBuilder struct {
	envelopes  []*events.AlertEnvelope
	err        error
	gotReading *events.SensorReading
	gotCands   []events.AlertCandidate
}

func (f *fakeBuilder) Persist(_ context.Context, reading *events.SensorReading, _ *database.Sensor, candidates []events.AlertCandidate) ([]*events.AlertEnvelope, error) {
	f.gotReading = reading
	f.gotCands = candidates
	if f.err != nil {
		return nil, f.err
	}
	return f.envelopes, nil
}

type fakeRouter struct {
	published   []*events.AlertEnvelope
	maintenance []*events.AlertEnvelope
	security    []*events.AlertEnvelope
}

func (f *fakeRouter) Publish(_ context.Context, env *events.AlertEnvelope) {
	f.published = append(f.published, env)
}

func (f *fakeRouter) PublishMaintenance(_ context.Context, env *events.AlertEnvelope) {
	f.maintenance = append(f.maintenance, env)
}

func (f *fakeRouter) PublishSecurity(_ context.Context, env *events.AlertEnvelope) {
	f.security = append(f.security, env)
}

type countingRecorder struct {
	retried      int
	dropped      int
	deadLettered int
}

func (c *countingRecorder) RecordReceived()                 {}
func (c *countingRecorder) RecordProcessed(_ time.Duration) {}
func (c *countingRecorder) RecordDropped()                  { c.dropped++ }
func (c *countingRecorder) RecordRetried()                  { c.retried++ }
func (c *countingRecorder) RecordAlertIssued()              {}
func (c *countingRecorder) RecordAlertSuppressed()          {}
func (c *countingRecorder) RecordPublished()                {}
func (c *countingRecorder) RecordPublishFailed()            {}
func (c *countingRecorder) RecordDeadLettered()             { c.deadLettered++ }
func (c *countingRecorder) RecordError()                    {}

func testSensor() *database.Sensor {
	return &database.Sensor{
		SensorID:   "sensor-1",
		SchoolID:   "school-1",
		SchoolName: "Northside Primary",
		Location:   "Room 12",
		Active:     true,
	}
}

type testHarness struct {
	gateway *Gateway
	dir     *fakeDirectory
	builder *fakeBuilder
	router  *fakeRouter
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	dir := &fakeDirectory{sensor: testSensor()}
	builder := &fakeBuilder{}
	router := &fakeRouter{}
	g, err := New(dir, rules.NewEngine(rules.DefaultThresholds()), builder, router, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testHarness{gateway: g, dir: dir, builder: builder, router: router}
}

func deliveryWith(t *testing.T, payload any, redelivered bool) (amqp.Delivery, *fakeAcknowledger) {
	t.Helper()
	var body []byte
	switch v := payload.(type) {
	case []byte:
		body = v
	default:
		var err error
		body, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
	}

	ack := &fakeAcknowledger{}
	return amqp.Delivery{
		Acknowledger: ack,
		Body:         body,
		Redelivered:  redelivered,
	}, ack
}

func reading(temp, humidity float64) map[string]any {
	return map[string]any{
		"sensor_id":   "sensor-1",
		"temperature": temp,
		"humidity":    humidity,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
}

func TestNew_Validation(t *testing.T) {
	engine := rules.NewEngine(rules.DefaultThresholds())
	dir := &fakeDirectory{}
	builder := &fakeBuilder{}
	router := &fakeRouter{}

	tests := []struct {
		name string
		fn   func() (*Gateway, error)
	}{
		{"nil directory", func() (*Gateway, error) { return New(nil, engine, builder, router, nil) }},
		{"nil engine", func() (*Gateway, error) { return New(dir, nil, builder, router, nil) }},
		{"nil builder", func() (*Gateway, error) { return New(dir, engine, nil, router, nil) }},
		{"nil router", func() (*Gateway, error) { return New(dir, engine, builder, nil, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestHandle_NormalReadingAcks(t *testing.T) {
	h := newHarness(t)
	d, ack := deliveryWith(t, reading(24.0, 55.0), false)

	h.gateway.Handle(context.Background(), d)

	if !ack.acked {
		t.Error("delivery not acked")
	}
	if ack.nacked {
		t.Error("delivery unexpectedly nacked")
	}
	if h.builder.gotReading == nil {
		t.Fatal("builder not called")
	}
	if len(h.builder.gotCands) != 0 {
		t.Errorf("candidates = %d, want 0 for comfortable reading", len(h.builder.gotCands))
	}
}

func TestHandle_HotReadingPublishesAlerts(t *testing.T) {
	h := newHarness(t)
	h.builder.envelopes = []*events.AlertEnvelope{
		{AlertID: "alert-1", AlertType: events.KindExtremeHeat, Level: events.SeverityCritical},
	}
	d, ack := deliveryWith(t, reading(36.0, 50.0), false)

	h.gateway.Handle(context.Background(), d)

	if !ack.acked {
		t.Error("delivery not acked")
	}
	if len(h.builder.gotCands) != 1 || h.builder.gotCands[0].Kind != events.KindExtremeHeat {
		t.Errorf("candidates = %v, want [EXTREME_HEAT]", h.builder.gotCands)
	}
	if len(h.router.published) != 1 {
		t.Errorf("published = %d, want 1", len(h.router.published))
	}
}

func TestHandle_MalformedJSONDropped(t *testing.T) {
	h := newHarness(t)
	d, ack := deliveryWith(t, []byte("{not json"), false)

	h.gateway.Handle(context.Background(), d)

	if !ack.acked {
		t.Error("malformed delivery not acked (must not requeue)")
	}
	if h.builder.gotReading != nil {
		t.Error("builder called for malformed payload")
	}
}

func TestHandle_InvalidReadingDropped(t *testing.T) {
	h := newHarness(t)
	d, ack := deliveryWith(t, reading(999.0, 55.0), false)

	h.gateway.Handle(context.Background(), d)

	if !ack.acked {
		t.Error("out-of-range delivery not acked")
	}
	if h.builder.gotReading != nil {
		t.Error("builder called for invalid reading")
	}
}

func TestHandle_UnknownSensorDropped(t *testing.T) {
	h := newHarness(t)
	h.dir.err = database.ErrSensorNotFound
	d, ack := deliveryWith(t, reading(24.0, 55.0), false)

	h.gateway.Handle(context.Background(), d)

	if !ack.acked {
		t.Error("unknown-sensor delivery not acked")
	}
}

func TestHandle_InactiveSensorDropped(t *testing.T) {
	h := newHarness(t)
	h.dir.err = directory.ErrSensorInactive
	d, ack := deliveryWith(t, reading(24.0, 55.0), false)

	h.gateway.Handle(context.Background(), d)

	if !ack.acked {
		t.Error("inactive-sensor delivery not acked")
	}
}

func TestHandle_TransientLookupFailureRequeues(t *testing.T) {
	h := newHarness(t)
	h.dir.err = errors.New("connection refused")
	d, ack := deliveryWith(t, reading(24.0, 55.0), false)

	h.gateway.Handle(context.Background(), d)

	if ack.acked {
		t.Error("delivery acked on transient failure")
	}
	if !ack.nacked || !ack.requeue {
		t.Errorf("nacked = %v, requeue = %v, want nack with requeue", ack.nacked, ack.requeue)
	}
}

func TestHandle_RedeliveredTransientFailureDeadLetters(t *testing.T) {
	h := newHarness(t)
	h.builder.err = errors.New("database down")
	d, ack := deliveryWith(t, reading(24.0, 55.0), true)

	h.gateway.Handle(context.Background(), d)

	if !ack.nacked {
		t.Fatal("delivery not nacked")
	}
	if ack.requeue {
		t.Error("redelivered message requeued, want requeue=false so the broker dead-letters it")
	}
}

func TestHandle_RetriedMetricOnlyOnRequeue(t *testing.T) {
	tests := []struct {
		name        string
		redelivered bool
		wantRetried int
	}{
		{"first failure requeues and counts a retry", false, 1},
		{"redelivered failure dead-letters without a retry count", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &countingRecorder{}
			builder := &fakeBuilder{err: errors.New("database down")}
			g, err := New(&fakeDirectory{sensor: testSensor()}, rules.NewEngine(rules.DefaultThresholds()), builder, &fakeRouter{}, rec)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			d, ack := deliveryWith(t, reading(24.0, 55.0), tt.redelivered)

			g.Handle(context.Background(), d)

			if !ack.nacked {
				t.Fatal("delivery not nacked")
			}
			if rec.retried != tt.wantRetried {
				t.Errorf("retried = %d, want %d", rec.retried, tt.wantRetried)
			}
		})
	}
}

func TestHandle_PersistFailureSkipsSideChecks(t *testing.T) {
	h := newHarness(t)
	h.builder.err = errors.New("database down")
	payload := reading(24.0, 55.0)
	payload["battery_level"] = 12
	payload["location"] = "Gymnasium"
	d, ack := deliveryWith(t, payload, false)

	h.gateway.Handle(context.Background(), d)

	if !ack.nacked {
		t.Fatal("delivery not nacked")
	}
	// A failed persist is redelivered in full. Publishing the side-channel
	// notifications before the save lands would duplicate them on retry.
	if len(h.router.maintenance) != 0 {
		t.Errorf("maintenance notifications = %d, want 0 before a successful save", len(h.router.maintenance))
	}
	if len(h.router.security) != 0 {
		t.Errorf("security notifications = %d, want 0 before a successful save", len(h.router.security))
	}
}

func TestHandle_MissingTimestampStamped(t *testing.T) {
	h := newHarness(t)
	payload := map[string]any{
		"sensor_id":   "sensor-1",
		"temperature": 24.0,
		"humidity":    55.0,
	}
	d, ack := deliveryWith(t, payload, false)

	h.gateway.Handle(context.Background(), d)

	if !ack.acked {
		t.Fatal("delivery not acked")
	}
	if h.builder.gotReading.Timestamp == nil {
		t.Error("reading timestamp not stamped on arrival")
	}
}

func TestHandle_SideChecks(t *testing.T) {
	h := newHarness(t)
	battery := 12
	signal := -95
	payload := map[string]any{
		"sensor_id":       "sensor-1",
		"temperature":     24.0,
		"humidity":        55.0,
		"battery_level":   battery,
		"signal_strength": signal,
		"location":        "Gymnasium",
	}
	d, ack := deliveryWith(t, payload, false)

	h.gateway.Handle(context.Background(), d)

	if !ack.acked {
		t.Fatal("delivery not acked")
	}
	if len(h.router.maintenance) != 2 {
		t.Fatalf("maintenance notifications = %d, want 2 (battery and signal)", len(h.router.maintenance))
	}
	kinds := map[events.Kind]bool{}
	for _, env := range h.router.maintenance {
		kinds[env.AlertType] = true
	}
	if !kinds[events.KindLowBattery] || !kinds[events.KindWeakSignal] {
		t.Errorf("maintenance kinds = %v, want LOW_BATTERY and WEAK_SIGNAL", kinds)
	}
	if len(h.router.security) != 1 {
		t.Fatalf("security notifications = %d, want 1", len(h.router.security))
	}
	if h.router.security[0].AlertType != events.KindSensorMoved {
		t.Errorf("security kind = %q, want SENSOR_MOVED", h.router.security[0].AlertType)
	}
}

func TestHandle_MatchingLocationNoSecurityAlert(t *testing.T) {
	h := newHarness(t)
	payload := reading(24.0, 55.0)
	payload["location"] = "Room 12"
	d, _ := deliveryWith(t, payload, false)

	h.gateway.Handle(context.Background(), d)

	if len(h.router.security) != 0 {
		t.Errorf("security notifications = %d, want 0 for matching location", len(h.router.security))
	}
}
