package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mtraver/irthermo/measurement"
	ir "github.com/mtraver/irthermo/mlx90632"
	"github.com/mtraver/irthermo/sensor"
	"github.com/mtraver/irthermo/sensor/dummy"
	"github.com/mtraver/irthermo/sensor/mcp9808"
	irsensor "github.com/mtraver/irthermo/sensor/mlx90632"
	"periph.io/x/conn/v3/i2c"
)

// Sensor kinds accepted in the config file.
const (
	kindMLX90632 = "mlx90632"
	kindMCP9808  = "mcp9808"
	kindDummy    = "dummy"
)

// SensorConfig configures one sensor. Fields other than Kind only apply to
// MLX90632 sensors.
type SensorConfig struct {
	Kind       string   `json:"kind"`
	Addr       uint16   `json:"addr,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	Rate       string   `json:"rate,omitempty"`
	Emissivity float64  `json:"emissivity,omitempty"`
	Reflected  *float64 `json:"reflected,omitempty"`
	Samples    int      `json:"samples,omitempty"`
	// Milliseconds between samples.
	IntervalMillis int `json:"interval_ms,omitempty"`
}

// Config is the contents of the JSON file given with -config.
type Config struct {
	DeviceID       string `json:"device_id"`
	Broker         string `json:"broker"`
	ClientID       string `json:"client_id,omitempty"`
	TelemetryTopic string `json:"telemetry_topic,omitempty"`
	// Path to PEM encoded CA certs for ssl:// brokers.
	CACerts string `json:"ca_certs,omitempty"`
	// I²C bus name; empty means the first available bus.
	Bus string `json:"bus,omitempty"`

	// Sensors are sampled in name order.
	Sensors map[string]SensorConfig `json:"sensors"`
}

func (c Config) ID() string {
	return c.DeviceID
}

func ParseConfigFile(filepath string) (Config, error) {
	b, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, err
	}

	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return Config{}, err
	}

	if err := measurement.ValidateDeviceID(c.DeviceID); err != nil {
		return Config{}, err
	}

	if c.Broker == "" {
		return Config{}, fmt.Errorf("config: broker must be given")
	}

	if len(c.Sensors) == 0 {
		return Config{}, fmt.Errorf("config: at least one sensor must be given")
	}

	if c.ClientID == "" {
		c.ClientID = c.DeviceID
	}
	if c.TelemetryTopic == "" {
		c.TelemetryTopic = fmt.Sprintf("devices/%s/telemetry", c.DeviceID)
	}

	for name, sc := range c.Sensors {
		if _, err := sc.mlx90632Opts(); err != nil {
			return Config{}, fmt.Errorf("config: sensor %q: %w", name, err)
		}
	}

	return c, nil
}

func (sc SensorConfig) mlx90632Opts() (irsensor.Opts, error) {
	opts := irsensor.DefaultOpts
	switch sc.Kind {
	case kindMLX90632:
	case kindMCP9808, kindDummy:
		return opts, nil
	default:
		return opts, fmt.Errorf("unknown sensor kind %q", sc.Kind)
	}

	if sc.Addr != 0 {
		opts.Addr = sc.Addr
	}

	if sc.Mode != "" {
		typ, err := ir.ParseMeasurementType(sc.Mode)
		if err != nil {
			return opts, err
		}
		opts.Type = typ
	}

	if sc.Rate != "" {
		r, err := ir.ParseRefreshRate(sc.Rate)
		if err != nil {
			return opts, err
		}
		opts.Rate = &r
	}

	if sc.Emissivity < 0 || sc.Emissivity > 1 {
		return opts, fmt.Errorf("emissivity must be in [0, 1], 0 means 1.0, got %v", sc.Emissivity)
	}
	opts.Emissivity = sc.Emissivity
	opts.Reflected = sc.Reflected

	if sc.Samples > 0 {
		opts.Samples = sc.Samples
	}
	opts.Interval = time.Duration(sc.IntervalMillis) * time.Millisecond

	return opts, nil
}

// registerSensors creates every configured sensor and adds it to the sensor
// registry. It returns the sensor names in sampling order.
func registerSensors(c Config, bus i2c.Bus) ([]string, error) {
	for name, sc := range c.Sensors {
		var s sensor.Sensor
		switch sc.Kind {
		case kindMLX90632:
			opts, err := sc.mlx90632Opts()
			if err != nil {
				return nil, err
			}
			s = irsensor.New(bus, opts)
		case kindMCP9808:
			d, err := mcp9808.New(bus)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize MCP9808 %q: %w", name, err)
			}
			s = d
		case kindDummy:
			s = dummy.Dummy{}
		default:
			return nil, fmt.Errorf("unknown sensor kind %q", sc.Kind)
		}

		sensor.Register(name, s)
	}

	return sensor.Names(), nil
}
