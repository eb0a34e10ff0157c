package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/go-cmp/cmp"
	"github.com/mtraver/irthermo/cache"
	"github.com/mtraver/irthermo/cmd/irlogger/pending"
	"github.com/mtraver/irthermo/measurement"
	"github.com/mtraver/irthermo/sensor"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type fakePublisher struct {
	err      error
	payloads [][]byte
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.payloads = append(p.payloads, payload.([]byte))
	return fakeToken{err: p.err}
}

type fakeDB struct {
	err   error
	saved []measurement.Measurement
}

func (db *fakeDB) Save(ctx context.Context, m measurement.Measurement) error {
	if db.err != nil {
		return db.err
	}
	db.saved = append(db.saved, m)
	return nil
}

type fakeSensor struct {
	err      error
	ambient  float32
	object   float32
	inits    int
	shutdown int
}

func (s *fakeSensor) Init() error {
	s.inits++
	return s.err
}

func (s *fakeSensor) Sense(m *measurement.Measurement) error {
	if s.err != nil {
		return s.err
	}
	m.AmbientTemp = measurement.Float(s.ambient)
	m.ObjectTemp = measurement.Float(s.object)
	return nil
}

func (s *fakeSensor) Shutdown() error {
	s.shutdown++
	return s.err
}

const testDeviceID = "test-device"

var testTime = time.Date(2018, time.March, 25, 0, 0, 0, 0, time.UTC)

func init() {
	sensor.Register("jobs_ok", &fakeSensor{ambient: 24.5, object: 36.5})
	sensor.Register("jobs_broken", &fakeSensor{err: errors.New("nack")})
}

func newTestJob(t *testing.T, pub *fakePublisher, db *fakeDB) SenseJob {
	t.Helper()

	j := SenseJob{
		DeviceID:   testDeviceID,
		Sensors:    []string{"jobs_broken", "jobs_ok"},
		Publisher:  pub,
		Topic:      "devices/test-device/telemetry",
		PendingDir: t.TempDir(),
		Latest:     cache.New[measurement.Measurement](),
		History:    cache.New[[]measurement.Measurement](),
		now:        func() time.Time { return testTime },
	}
	if db != nil {
		j.DB = db
	}
	return j
}

func pendingCount(t *testing.T, dir string) int {
	t.Helper()

	paths, err := pending.List(dir)
	if err != nil {
		t.Fatalf("Failed to list pending dir: %v", err)
	}
	return len(paths)
}

func TestSense(t *testing.T) {
	want := measurement.Measurement{
		DeviceID:    testDeviceID,
		Timestamp:   testTime,
		AmbientTemp: measurement.Float(24.5),
		ObjectTemp:  measurement.Float(36.5),
	}

	cases := []struct {
		name        string
		mqttErr     error
		dbErr       error
		wantErr     bool
		wantSaved   int
		wantPending int
	}{
		{
			name:      "success",
			wantSaved: 1,
		},
		{
			name:        "mqtt_failure",
			mqttErr:     errors.New("not connected"),
			wantErr:     true,
			wantSaved:   1,
			wantPending: 1,
		},
		{
			name:    "db_failure",
			dbErr:   errors.New("unauthorized"),
			wantErr: true,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pub := &fakePublisher{err: c.mqttErr}
			db := &fakeDB{err: c.dbErr}
			j := newTestJob(t, pub, db)

			got, err := j.sense()
			if c.wantErr && err == nil {
				t.Errorf("Expected error, got no error")
			} else if !c.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}

			if diff := cmp.Diff(got, want); diff != "" {
				t.Errorf("Unexpected result (-got +want):\n%s", diff)
			}

			if len(pub.payloads) != 1 {
				t.Fatalf("Got %d publishes, want 1", len(pub.payloads))
			}
			published, err := measurement.Unmarshal(pub.payloads[0])
			if err != nil {
				t.Fatalf("Failed to unmarshal payload: %v", err)
			}
			if diff := cmp.Diff(published, want); diff != "" {
				t.Errorf("Unexpected payload (-got +want):\n%s", diff)
			}

			if len(db.saved) != c.wantSaved {
				t.Errorf("Got %d saved, want %d", len(db.saved), c.wantSaved)
			}

			if n := pendingCount(t, j.PendingDir); n != c.wantPending {
				t.Errorf("Got %d pending, want %d", n, c.wantPending)
			}

			// The caches are filled even when sending fails.
			if _, ok := j.Latest.Lookup(measurement.CacheKeyLatest(testDeviceID)); !ok {
				t.Errorf("Latest measurement not cached")
			}
		})
	}
}

func TestSenseNoMeasurements(t *testing.T) {
	pub := &fakePublisher{}
	j := newTestJob(t, pub, nil)
	j.Sensors = []string{"jobs_broken", "jobs_missing"}

	if _, err := j.sense(); err == nil {
		t.Errorf("Expected error, got no error")
	}
	if len(pub.payloads) != 0 {
		t.Errorf("Got %d publishes, want 0", len(pub.payloads))
	}
	if j.Latest.Len() != 0 {
		t.Errorf("Cached a measurement that was never taken")
	}
}

func TestSenseInvalidDeviceID(t *testing.T) {
	pub := &fakePublisher{}
	j := newTestJob(t, pub, nil)
	j.DeviceID = "X"

	if _, err := j.sense(); err == nil {
		t.Errorf("Expected error, got no error")
	}
	if len(pub.payloads) != 0 {
		t.Errorf("Got %d publishes, want 0", len(pub.payloads))
	}
}

func TestSenseDryrun(t *testing.T) {
	pub := &fakePublisher{}
	db := &fakeDB{}
	j := newTestJob(t, pub, db)
	j.Dryrun = true

	if _, err := j.sense(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if len(pub.payloads) != 0 || len(db.saved) != 0 {
		t.Errorf("Dry run sent measurements: %d publishes, %d saved", len(pub.payloads), len(db.saved))
	}
	if got := j.History.Get(measurement.CacheKeyHistory(testDeviceID)); len(got) != 1 {
		t.Errorf("Got %d in history, want 1", len(got))
	}
}

func TestSenseNoPublisher(t *testing.T) {
	j := newTestJob(t, nil, nil)
	j.Publisher = nil

	if _, err := j.sense(); err == nil {
		t.Errorf("Expected error, got no error")
	}
	if n := pendingCount(t, j.PendingDir); n != 1 {
		t.Errorf("Got %d pending, want 1", n)
	}
}

func TestHistoryCapped(t *testing.T) {
	j := newTestJob(t, &fakePublisher{}, nil)

	key := measurement.CacheKeyHistory(testDeviceID)
	old := make([]measurement.Measurement, historyLen)
	for i := range old {
		old[i] = measurement.Measurement{DeviceID: testDeviceID, Timestamp: testTime.Add(-time.Duration(historyLen-i) * time.Minute)}
	}
	j.History.Set(key, old, time.Hour)

	if _, err := j.sense(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := j.History.Get(key)
	if len(got) != historyLen {
		t.Fatalf("Got %d in history, want %d", len(got), historyLen)
	}
	if !got[len(got)-1].Timestamp.Equal(testTime) {
		t.Errorf("Newest measurement is not last")
	}
	if !got[0].Timestamp.Equal(old[1].Timestamp) {
		t.Errorf("Oldest measurement was not dropped")
	}
}

func TestSetupAndShutdown(t *testing.T) {
	s := &fakeSensor{}
	sensor.Register("jobs_lifecycle", s)

	names := []string{"jobs_lifecycle", "jobs_missing"}
	SetupJob{Sensors: names}.Run()
	ShutdownJob{Sensors: names}.Run()

	if s.inits != 1 || s.shutdown != 1 {
		t.Errorf("Got %d inits and %d shutdowns, want 1 each", s.inits, s.shutdown)
	}
}

func TestSenseAllSinksFail(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	db := &fakeDB{err: errors.New("unauthorized")}
	j := newTestJob(t, pub, db)
	// Saving to the pending queue fails too.
	j.PendingDir = filepath.Join(t.TempDir(), "missing")

	done := make(chan error, 1)
	go func() {
		_, err := j.sense()
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("Expected error, got no error")
		}
		for _, s := range []string{"[mqtt]", "[pending]", "[db]"} {
			if !strings.Contains(err.Error(), s) {
				t.Errorf("Error %q does not mention %s", err, s)
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("sense() did not return after 3s")
	}
}
