// Program readtemp reads the ambient and object temperatures from an MLX90632
// once and prints them.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/mtraver/irthermo/measurement"
	ir "github.com/mtraver/irthermo/mlx90632"
	sensor "github.com/mtraver/irthermo/sensor/mlx90632"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// optionalFloat is a float flag that remembers whether it was given.
type optionalFloat struct {
	v   float64
	set bool
}

func (f *optionalFloat) String() string {
	if f == nil || !f.set {
		return ""
	}
	return strconv.FormatFloat(f.v, 'f', -1, 64)
}

func (f *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.v = v
	f.set = true
	return nil
}

type config struct {
	bus        string
	addr       uint
	mode       string
	rate       string
	emissivity float64
	reflected  optionalFloat
	samples    int
	jsonOut    bool
}

func newFlagSet(c *config) *flag.FlagSet {
	fs := flag.NewFlagSet("readtemp", flag.ContinueOnError)
	fs.StringVar(&c.bus, "bus", "", "I²C bus name; empty means the first available bus")
	fs.UintVar(&c.addr, "addr", ir.DefaultI2CAddr, "I²C address of the sensor")
	fs.StringVar(&c.mode, "mode", ir.MedicalContinuous.String(), "measurement type: medical, extended, medical-burst or extended-burst")
	fs.StringVar(&c.rate, "rate", "", "refresh rate to store in EEPROM, e.g. 2Hz; empty leaves it unchanged")
	fs.Float64Var(&c.emissivity, "emissivity", 1.0, "emissivity of the target, in (0, 1]")
	fs.Var(&c.reflected, "reflected", "temperature of the surroundings in °C, for reflection correction")
	fs.IntVar(&c.samples, "samples", 1, "number of samples to average")
	fs.BoolVar(&c.jsonOut, "json", false, "print the measurement as JSON")
	return fs
}

func parseFlags(args []string) (config, sensor.Opts, error) {
	var c config
	fs := newFlagSet(&c)
	if err := fs.Parse(args); err != nil {
		return c, sensor.Opts{}, err
	}

	if c.addr > 0x7f {
		return c, sensor.Opts{}, fmt.Errorf("addr must be a 7-bit address, got 0x%x", c.addr)
	}

	if c.emissivity <= 0 || c.emissivity > 1 {
		return c, sensor.Opts{}, fmt.Errorf("emissivity must be in (0, 1], got %v", c.emissivity)
	}

	if c.samples < 1 {
		return c, sensor.Opts{}, fmt.Errorf("samples must be at least 1, got %d", c.samples)
	}

	typ, err := ir.ParseMeasurementType(c.mode)
	if err != nil {
		return c, sensor.Opts{}, err
	}

	opts := sensor.Opts{
		Addr:       uint16(c.addr),
		Type:       typ,
		Emissivity: c.emissivity,
		Samples:    c.samples,
		Interval:   100 * time.Millisecond,
	}

	if c.rate != "" {
		r, err := ir.ParseRefreshRate(c.rate)
		if err != nil {
			return c, sensor.Opts{}, err
		}
		opts.Rate = &r
	}

	if c.reflected.set {
		v := c.reflected.v
		opts.Reflected = &v
	}

	return c, opts, nil
}

func toJSON(m measurement.Measurement) (string, error) {
	b, err := m.ToJSON("")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// run reads the sensor once and prints the result. It returns the process exit
// code so that deferred cleanup runs before main exits.
func run(args []string, stdout io.Writer) int {
	c, opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stdout, "argument error: %v\n", err)
		return 2
	}

	if _, err := host.Init(); err != nil {
		log.Printf("Failed to initialize periph: %v", err)
		return 1
	}

	bus, err := i2creg.Open(c.bus)
	if err != nil {
		log.Printf("Failed to open I²C bus: %v", err)
		return 1
	}
	defer bus.Close()

	s := sensor.New(bus, opts)
	if err := s.Init(); err != nil {
		log.Printf("Sensor init failed: %v", err)
		return 1
	}
	defer s.Shutdown()

	m := measurement.Measurement{
		DeviceID:  "none",
		Timestamp: time.Now().UTC(),
	}
	if err := s.Sense(&m); err != nil {
		log.Printf("Failed to read temp: %v", err)
		return 1
	}

	if err := printMeasurement(stdout, m, c.jsonOut); err != nil {
		log.Printf("Failed to print measurement: %v", err)
		return 1
	}
	return 0
}

func printMeasurement(w io.Writer, m measurement.Measurement, jsonOut bool) error {
	if jsonOut {
		j, err := toJSON(m)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, j)
		return err
	}

	if m.AmbientTemp == nil || m.ObjectTemp == nil {
		return fmt.Errorf("measurement is missing a temperature: %v", m)
	}
	_, err := fmt.Fprintf(w, "%.2f %.2f\n", *m.AmbientTemp, *m.ObjectTemp)
	return err
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
