// Package mlx90632 drives the Melexis MLX90632 infrared thermometer and
// implements its DSP v5 temperature compensation.
//
// Datasheet: https://www.melexis.com/en/documents/documentation/datasheets/datasheet-mlx90632
//
// A Dev is not safe for concurrent use. Every method that talks to the device
// may block: continuous mode polls for up to PollAttempts backoff periods and
// burst mode first sleeps for a full table refresh (up to several seconds at
// the lowest refresh rates).
package mlx90632

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// Opts holds the poll budgets and backoff window. The zero value of a field
// means the default.
type Opts struct {
	// PollAttempts is the number of status reads while waiting for new data in
	// continuous mode.
	PollAttempts int
	// BurstPollAttempts is the number of status reads while waiting for the
	// device to go idle after a burst.
	BurstPollAttempts int
	// ExtendedAttempts is the number of full measurement cycles to wait for the
	// last extended range table entry.
	ExtendedAttempts int
	// EEPROMPollAttempts is the number of status reads while waiting for an
	// EEPROM erase or write to complete.
	EEPROMPollAttempts int

	// Sleep window between polls, in microseconds.
	BackoffMinMicros int
	BackoffMaxMicros int
}

// DefaultOpts are the vendor values.
var DefaultOpts = Opts{
	PollAttempts:       100,
	BurstPollAttempts:  150,
	ExtendedAttempts:   3,
	EEPROMPollAttempts: 1000,
	BackoffMinMicros:   10000,
	BackoffMaxMicros:   11000,
}

func (o Opts) withDefaults() Opts {
	if o.PollAttempts <= 0 {
		o.PollAttempts = DefaultOpts.PollAttempts
	}
	if o.BurstPollAttempts <= 0 {
		o.BurstPollAttempts = DefaultOpts.BurstPollAttempts
	}
	if o.ExtendedAttempts <= 0 {
		o.ExtendedAttempts = DefaultOpts.ExtendedAttempts
	}
	if o.EEPROMPollAttempts <= 0 {
		o.EEPROMPollAttempts = DefaultOpts.EEPROMPollAttempts
	}
	if o.BackoffMinMicros <= 0 || o.BackoffMaxMicros < o.BackoffMinMicros {
		o.BackoffMinMicros = DefaultOpts.BackoffMinMicros
		o.BackoffMaxMicros = DefaultOpts.BackoffMaxMicros
	}
	return o
}

// Dev is a handle to one MLX90632.
type Dev struct {
	bus   Bus
	clock Clock
	opts  Opts

	// 0 means unset, which is treated as 1.0.
	emissivity float64
}

// New returns a Dev that talks to the device through bus and sleeps with
// clock. opts may be nil.
func New(bus Bus, clock Clock, opts *Opts) *Dev {
	o := DefaultOpts
	if opts != nil {
		o = opts.withDefaults()
	}

	return &Dev{
		bus:   bus,
		clock: clock,
		opts:  o,
	}
}

// NewI2C returns a Dev for the device at addr on an I²C bus, sleeping with
// time.Sleep.
func NewI2C(bus i2c.Bus, addr uint16, opts *Opts) *Dev {
	return New(NewI2CBus(bus, addr), SleepClock{}, opts)
}

func (d *Dev) String() string {
	return fmt.Sprintf("MLX90632{%v}", d.bus)
}

// Init checks that the EEPROM holds DSP v5 calibration and clears the data
// ready flag for a clean start. It reports whether the part supports the
// extended measurement range.
func (d *Dev) Init() (bool, error) {
	version, err := d.bus.Read16(eeVersion)
	if err != nil {
		return false, err
	}

	if version&0x00ff != dspV5 {
		return false, fmt.Errorf("%w: EEPROM version 0x%04x", ErrUnsupportedDSP, version)
	}

	if err := d.TriggerMeasurement(); err != nil {
		return false, err
	}

	return version&0x7f00 == extendedRangeKey, nil
}

// Reset performs an addressed reset. The control register is put into step
// mode for the reset and restored afterwards.
func (d *Dev) Reset() error {
	ctrl, err := d.bus.Read16(regControl)
	if err != nil {
		return err
	}

	if err := d.bus.Write16(regControl, ctrl&^ctrlPowerModeMask|powerModeStep); err != nil {
		return err
	}

	if err := d.bus.Write16(regCommand, resetCommand); err != nil {
		return err
	}

	d.clock.SleepMicros(150, 200)

	return d.bus.Write16(regControl, ctrl)
}

// SetEmissivity sets the emissivity of the measured surface. Zero restores the
// default of 1.0.
func (d *Dev) SetEmissivity(e float64) {
	d.emissivity = e
}

// Emissivity returns the emissivity used by the object temperature methods.
func (d *Dev) Emissivity() float64 {
	return effectiveEmissivity(d.emissivity)
}

// ChannelPosition returns the position in the measurement table of the most
// recently completed measurement.
func (d *Dev) ChannelPosition() (int, error) {
	status, err := d.bus.Read16(regStatus)
	if err != nil {
		return 0, err
	}

	return cyclePosition(status), nil
}

func cyclePosition(status uint16) int {
	return int(status&statCyclePos) >> statCycleShift
}
