// Package measurement defines the record produced by each sensing cycle and its
// wire encodings.
package measurement

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Used for separating substrings in database and cache keys. The octothorpe is
// fine for this because device IDs and timestamps, the two things most likely
// to be used in keys, can't contain it.
const keySep = "#"

var deviceIDRegex = regexp.MustCompile(`^[a-z][a-z0-9+.%~_-]{2,254}$`)

// Measurement is one reading from a device. Each temperature is optional so that
// a series of sensors can each fill in what they measure.
type Measurement struct {
	DeviceID        string
	Timestamp       time.Time
	UploadTimestamp time.Time

	// Die temperature of the thermometer, in °C.
	AmbientTemp *float32
	// Temperature of the object in the field of view, in °C.
	ObjectTemp *float32
	// Temperature from a contact reference thermometer, in °C.
	ReferenceTemp *float32
}

// Float returns a pointer to f, for filling in Measurement fields.
func Float(f float32) *float32 {
	return &f
}

// ValueMap returns the temperatures that are set, keyed by metric name.
func (m Measurement) ValueMap() map[string]float32 {
	vals := make(map[string]float32)
	for _, name := range MetricNames() {
		if v := m.value(name); v != nil {
			vals[name] = *v
		}
	}
	return vals
}

// value returns the field holding the named metric, nil if unset or unknown.
func (m Measurement) value(name string) *float32 {
	switch name {
	case Ambient:
		return m.AmbientTemp
	case Object:
		return m.ObjectTemp
	case Reference:
		return m.ReferenceTemp
	}
	return nil
}

// DBKey returns a string key that promotes device ID and timestamp into the key.
func (m Measurement) DBKey() string {
	return strings.Join([]string{m.DeviceID, m.Timestamp.Format(time.RFC3339)}, keySep)
}

func (m Measurement) String() string {
	vals := m.ValueMap()
	names := make([]string, 0, len(vals))
	for k := range vals {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%.3f°C", name, vals[name]))
	}
	values := strings.Join(parts, " ")
	if values == "" {
		values = "[unknown]"
	}

	delay := ""
	if !m.UploadTimestamp.IsZero() {
		delay = fmt.Sprintf(" (%v upload delay)", m.UploadTimestamp.Sub(m.Timestamp))
	}

	return fmt.Sprintf("%s %s %s%s", m.DeviceID, values, m.Timestamp.UTC().Format(time.RFC3339), delay)
}

// Validate returns an error if the device ID is malformed, the timestamp is
// missing or a temperature is not a number.
func (m Measurement) Validate() error {
	if err := ValidateDeviceID(m.DeviceID); err != nil {
		return err
	}

	if m.Timestamp.IsZero() {
		return errors.New("measurement: timestamp must be set")
	}

	for name, v := range m.ValueMap() {
		if math.IsNaN(float64(v)) {
			return fmt.Errorf("measurement: %s is NaN", name)
		}
	}

	return nil
}

// ValidateDeviceID returns an error if id is not a legal device ID.
func ValidateDeviceID(id string) error {
	if !deviceIDRegex.MatchString(id) {
		return fmt.Errorf("measurement: field failed regex validation. Field: %q Value: %q Regex: %q", "device_id", id, deviceIDRegex)
	}
	return nil
}

// CacheKeyLatest returns the cache key of the latest measurement for the given device ID.
func CacheKeyLatest(deviceID string) string {
	return strings.Join([]string{deviceID, "latest"}, keySep)
}

// CacheKeyHistory returns the cache key of the recent measurements for the
// given device ID.
func CacheKeyHistory(deviceID string) string {
	return strings.Join([]string{deviceID, "history"}, keySep)
}
