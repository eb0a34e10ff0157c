// Package mlx90632 samples an MLX90632 infrared thermometer as a sensor.Sensor.
package mlx90632

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mtraver/irthermo/measurement"
	ir "github.com/mtraver/irthermo/mlx90632"
	"periph.io/x/conn/v3/i2c"
)

var (
	ErrExtendedUnsupported = errors.New("mlx90632: device does not support the extended range")
	ErrNotInitialized      = errors.New("mlx90632: sensor not initialized")
)

type Opts struct {
	Addr uint16
	Type ir.MeasurementType
	// Rate is written to EEPROM by Init if set. EEPROM has limited write
	// endurance, but unchanged words are never rewritten.
	Rate *ir.RefreshRate
	// Emissivity of the target. Zero means 1.0.
	Emissivity float64
	// Reflected is the temperature of the surroundings in °C. If nil the
	// reflected correction is skipped in the medical range and the ambient
	// temperature is used in the extended range.
	Reflected *float64
	Samples   int
	Interval  time.Duration

	// Dev tunes the driver's poll budgets.
	Dev ir.Opts
}

// DefaultOpts reads one medical range sample from the device at its factory
// address.
var DefaultOpts = Opts{
	Addr:    ir.DefaultI2CAddr,
	Type:    ir.MedicalContinuous,
	Samples: 1,
}

type MLX90632 struct {
	dev   *ir.Dev
	opts  Opts
	sleep func(time.Duration)

	cal   ir.Calibration
	ready bool
}

func New(bus i2c.Bus, opts Opts) *MLX90632 {
	return newWithDev(ir.NewI2C(bus, opts.Addr, &opts.Dev), opts)
}

func newWithDev(dev *ir.Dev, opts Opts) *MLX90632 {
	if opts.Samples <= 0 {
		opts.Samples = 1
	}
	dev.SetEmissivity(opts.Emissivity)

	return &MLX90632{
		dev:   dev,
		opts:  opts,
		sleep: time.Sleep,
	}
}

// Init checks the device, reads its calibration and configures the measurement
// type and refresh rate.
func (s *MLX90632) Init() error {
	s.ready = false

	extended, err := s.dev.Init()
	if err != nil {
		return err
	}
	if s.opts.Type.Extended() && !extended {
		return ErrExtendedUnsupported
	}

	cal, err := s.dev.ReadCalibration()
	if err != nil {
		return fmt.Errorf("mlx90632: failed to read calibration: %w", err)
	}
	s.cal = cal

	if err := s.dev.SetMeasurementType(s.opts.Type); err != nil {
		return fmt.Errorf("mlx90632: failed to set measurement type %v: %w", s.opts.Type, err)
	}

	if s.opts.Rate != nil {
		if err := s.dev.SetRefreshRate(*s.opts.Rate); err != nil {
			return fmt.Errorf("mlx90632: failed to set refresh rate %v: %w", *s.opts.Rate, err)
		}
	}

	log.Printf("[mlx90632] %v ready: %v, emissivity %.3f", s.dev, s.opts.Type, s.dev.Emissivity())
	s.ready = true
	return nil
}

// Sense sets the ambient and object temperatures to the mean of the configured
// number of samples.
func (s *MLX90632) Sense(m *measurement.Measurement) error {
	var ambientSum, objectSum float64
	for i := 0; i < s.opts.Samples; i++ {
		ambient, object, err := s.Read()
		if err != nil {
			return err
		}

		ambientSum += ambient
		objectSum += object
		if i < s.opts.Samples-1 {
			s.sleep(s.opts.Interval)
		}
	}

	n := float64(s.opts.Samples)
	m.AmbientTemp = measurement.Float(float32(ambientSum / n))
	m.ObjectTemp = measurement.Float(float32(objectSum / n))
	return nil
}

func (s *MLX90632) Shutdown() error {
	s.ready = false
	return nil
}

// Read takes one measurement and returns the ambient and object temperatures
// in °C.
func (s *MLX90632) Read() (float64, float64, error) {
	if !s.ready {
		return 0, 0, ErrNotInitialized
	}

	if s.opts.Type.Extended() {
		return s.readExtended()
	}
	return s.readMedical()
}

func (s *MLX90632) readMedical() (float64, float64, error) {
	var raw ir.Raw
	var err error
	if s.opts.Type.Burst() {
		raw, err = s.dev.ReadRawBurst()
	} else {
		raw, err = s.dev.ReadRaw()
	}
	if err != nil {
		return 0, 0, err
	}

	ambient := ir.PreprocessAmbient(raw.Ambient.New, raw.Ambient.Old, s.cal.Gb)
	object := ir.PreprocessObject(raw.Object.New, raw.Object.Old, raw.Ambient.New, raw.Ambient.Old, s.cal.Ka)

	ta := ir.AmbientTemperature(raw.Ambient.New, raw.Ambient.Old, s.cal)
	if s.opts.Reflected != nil {
		return ta, s.dev.ObjectTemperatureReflected(int32(object), int32(ambient), *s.opts.Reflected, s.cal), nil
	}
	return ta, s.dev.ObjectTemperature(int32(object), int32(ambient), s.cal), nil
}

func (s *MLX90632) readExtended() (float64, float64, error) {
	var raw ir.ExtendedRaw
	var err error
	if s.opts.Type.Burst() {
		raw, err = s.dev.ReadRawExtendedBurst()
	} else {
		raw, err = s.dev.ReadRawExtended()
	}
	if err != nil {
		return 0, 0, err
	}

	ambient := ir.PreprocessAmbient(raw.Ambient.New, raw.Ambient.Old, s.cal.Gb)
	object := ir.PreprocessObjectExtended(raw.Object, raw.Ambient.New, raw.Ambient.Old, s.cal.Ka)

	ta := ir.AmbientTemperature(raw.Ambient.New, raw.Ambient.Old, s.cal)
	reflected := ta
	if s.opts.Reflected != nil {
		reflected = *s.opts.Reflected
	}
	return ta, s.dev.ObjectTemperatureExtended(int32(object), int32(ambient), reflected, s.cal), nil
}
