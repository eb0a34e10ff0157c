package measurement

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	testTimestamp  = time.Date(2018, time.March, 25, 0, 0, 0, 0, time.UTC)
	testTimestamp2 = time.Date(2018, time.March, 25, 14, 40, 0, 0, time.UTC)
)

func TestMeasurementString(t *testing.T) {
	cases := []struct {
		name string
		m    Measurement
		want string
	}{
		{"empty", Measurement{}, " [unknown] 0001-01-01T00:00:00Z"},
		{"no_upload_timestamp",
			Measurement{
				DeviceID:   "foo",
				Timestamp:  testTimestamp,
				ObjectTemp: Float(36.3748),
			},
			"foo object=36.375°C 2018-03-25T00:00:00Z",
		},
		{"upload_timestamp",
			Measurement{
				DeviceID:        "foo",
				Timestamp:       testTimestamp,
				UploadTimestamp: testTimestamp2,
				AmbientTemp:     Float(24.5),
				ObjectTemp:      Float(36.3748),
			},
			"foo ambient=24.500°C object=36.375°C 2018-03-25T00:00:00Z (14h40m0s upload delay)",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := fmt.Sprintf("%v", c.m)
			if got != c.want {
				t.Errorf("Got %q, want %q", got, c.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		m     Measurement
		valid bool
	}{
		{"valid", Measurement{DeviceID: "foo+.%~_-0123", Timestamp: testTimestamp}, true},
		{"empty", Measurement{DeviceID: "", Timestamp: testTimestamp}, false},
		{"short", Measurement{DeviceID: "a", Timestamp: testTimestamp}, false},
		{"non_alpha_short", Measurement{DeviceID: "7abcd", Timestamp: testTimestamp}, false},
		{"illegal_chars", Measurement{DeviceID: "foo`!@#$^&*()={}[]<>,?/|\\':;", Timestamp: testTimestamp}, false},
		{"no_timestamp", Measurement{DeviceID: "foo"}, false},
		{"nan", Measurement{DeviceID: "foo", Timestamp: testTimestamp, ObjectTemp: Float(float32(math.NaN()))}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if valid := c.m.Validate() == nil; valid != c.valid {
				t.Errorf("Measurement valid is %v, expected %v", valid, c.valid)
			}
		})
	}
}

func TestDBKey(t *testing.T) {
	m := Measurement{
		DeviceID:   "foo",
		Timestamp:  testTimestamp,
		ObjectTemp: Float(18.5),
	}

	expected := "foo#2018-03-25T00:00:00Z"
	key := m.DBKey()
	if key != expected {
		t.Errorf("Incorrect DB key. Expected %q, got %q", expected, key)
	}
}

func TestValueMap(t *testing.T) {
	m := Measurement{
		AmbientTemp:   Float(24.5),
		ReferenceTemp: Float(24.25),
	}

	want := map[string]float32{
		Ambient:   24.5,
		Reference: 24.25,
	}
	if diff := cmp.Diff(m.ValueMap(), want); diff != "" {
		t.Errorf("Unexpected result (-got +want):\n%s", diff)
	}

	for k := range want {
		if _, ok := GetMetric(k); !ok {
			t.Errorf("No metric for ValueMap key %q", k)
		}
	}
}

func TestToProto(t *testing.T) {
	m := Measurement{
		DeviceID:    "foo",
		Timestamp:   testTimestamp,
		AmbientTemp: Float(24.5),
		ObjectTemp:  Float(36.25),
	}

	got, err := m.ToProto()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := map[string]any{
		"device_id":    "foo",
		"timestamp":    "2018-03-25T00:00:00Z",
		"ambient_temp": 24.5,
		"object_temp":  36.25,
	}
	if diff := cmp.Diff(got.AsMap(), want); diff != "" {
		t.Errorf("Unexpected result (-got +want):\n%s", diff)
	}
}

func TestEncodings(t *testing.T) {
	cases := []struct {
		name string
		m    Measurement
	}{
		{"no_upload_timestamp",
			Measurement{
				DeviceID:    "foo",
				Timestamp:   testTimestamp,
				AmbientTemp: Float(24.5),
				ObjectTemp:  Float(36.25),
			},
		},
		{"all_fields",
			Measurement{
				DeviceID:        "foo",
				Timestamp:       testTimestamp,
				UploadTimestamp: testTimestamp2,
				AmbientTemp:     Float(24.5),
				ObjectTemp:      Float(-12.75),
				ReferenceTemp:   Float(24.0),
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, err := c.m.Marshal()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			got, err := Unmarshal(b)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(got, c.m); diff != "" {
				t.Errorf("Binary: unexpected result (-got +want):\n%s", diff)
			}

			j, err := c.m.ToJSON("  ")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			got, err = FromJSON(j)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(got, c.m); diff != "" {
				t.Errorf("JSON: unexpected result (-got +want):\n%s", diff)
			}
		})
	}
}

func TestFromProtoErrors(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]any
	}{
		{"no_timestamp", map[string]any{"device_id": "foo"}},
		{"bad_timestamp", map[string]any{"device_id": "foo", "timestamp": "yesterday"}},
		{"bad_upload_timestamp", map[string]any{"device_id": "foo", "timestamp": "2018-03-25T00:00:00Z", "upload_timestamp": 7.0}},
		{"string_temp", map[string]any{"device_id": "foo", "timestamp": "2018-03-25T00:00:00Z", "object_temp": "hot"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, err := structpb.NewStruct(c.fields)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if _, err := FromProto(s); err == nil {
				t.Errorf("Expected error, got no error")
			}
		})
	}
}

func TestMetricNames(t *testing.T) {
	want := []string{Ambient, Object, Reference}
	if diff := cmp.Diff(MetricNames(), want); diff != "" {
		t.Errorf("Unexpected result (-got +want):\n%s", diff)
	}
}
