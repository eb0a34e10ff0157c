package sensor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mtraver/irthermo/measurement"
)

type nopSensor struct{ id int }

func (nopSensor) Init() error                            { return nil }
func (nopSensor) Sense(m *measurement.Measurement) error { return nil }
func (nopSensor) Shutdown() error                        { return nil }

func TestRegistry(t *testing.T) {
	Register("b", nopSensor{1})
	Register("a", nopSensor{2})
	Register("b", nopSensor{3})

	got, err := Get("b")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != (nopSensor{3}) {
		t.Errorf("Got %v, expected the sensor registered last", got)
	}

	if _, err := Get("c"); err == nil {
		t.Errorf("Expected error for unknown sensor, got no error")
	}

	if diff := cmp.Diff(Names(), []string{"a", "b"}); diff != "" {
		t.Errorf("Unexpected result (-got +want):\n%s", diff)
	}
}
