package mlx90632

import "fmt"

// RefreshRate is the rate at which the device refreshes one measurement table
// entry. Each step doubles the rate.
type RefreshRate uint8

const (
	RateHalfHz RefreshRate = iota
	Rate1Hz
	Rate2Hz
	Rate4Hz
	Rate8Hz
	Rate16Hz
	Rate32Hz
	Rate64Hz
)

var refreshRateNames = []string{"0.5Hz", "1Hz", "2Hz", "4Hz", "8Hz", "16Hz", "32Hz", "64Hz"}

func (r RefreshRate) String() string {
	if int(r) < len(refreshRateNames) {
		return refreshRateNames[r]
	}
	return fmt.Sprintf("RefreshRate(%d)", uint8(r))
}

// Valid reports whether r is one of the eight rates the device supports.
func (r RefreshRate) Valid() bool {
	return r <= Rate64Hz
}

// ParseRefreshRate parses the names printed by RefreshRate.String.
func ParseRefreshRate(s string) (RefreshRate, error) {
	for i, name := range refreshRateNames {
		if s == name {
			return RefreshRate(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown refresh rate %q", ErrInvalidArgument, s)
}

// withRefreshRate returns the MEAS word meas with its refresh rate field set
// to r.
func withRefreshRate(meas uint16, r RefreshRate) uint16 {
	return meas&^refreshRateMask | uint16(r)<<refreshRateShift
}

// SetRefreshRate stores r in both medical MEAS words in EEPROM. Words that
// already hold r are not rewritten.
func (d *Dev) SetRefreshRate(r RefreshRate) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, r)
	}

	for _, addr := range []uint16{eeMedicalMeas1, eeMedicalMeas2} {
		meas, err := d.bus.Read16(addr)
		if err != nil {
			return err
		}

		if v := withRefreshRate(meas, r); v != meas {
			if err := d.writeEEPROM(addr, v); err != nil {
				return err
			}
		}
	}

	return nil
}

// RefreshRate reads the refresh rate from the first medical MEAS word.
func (d *Dev) RefreshRate() (RefreshRate, error) {
	meas, err := d.bus.Read16(eeMedicalMeas1)
	if err != nil {
		return 0, err
	}

	return RefreshRate((meas & refreshRateMask) >> refreshRateShift), nil
}

func (d *Dev) unlockEEPROM() error {
	return d.bus.Write16(regCommand, eepromWriteKey)
}

// waitEEPROM polls until the EEPROM busy flag clears.
func (d *Dev) waitEEPROM() error {
	for i := 0; i < d.opts.EEPROMPollAttempts; i++ {
		status, err := d.bus.Read16(regStatus)
		if err != nil {
			return err
		}

		if status&statEEBusy == 0 {
			return nil
		}
	}

	return fmt.Errorf("%w: EEPROM still busy after %d reads", ErrTimeout, d.opts.EEPROMPollAttempts)
}

func (d *Dev) eraseEEPROM(addr uint16) error {
	if err := d.unlockEEPROM(); err != nil {
		return err
	}

	if err := d.bus.Write16(addr, 0x0000); err != nil {
		return err
	}

	return d.waitEEPROM()
}

// writeEEPROM erases the word at addr and writes v to it. Each erase and
// write must be preceded by the unlock key.
func (d *Dev) writeEEPROM(addr, v uint16) error {
	if err := d.eraseEEPROM(addr); err != nil {
		return err
	}

	if err := d.unlockEEPROM(); err != nil {
		return err
	}

	if err := d.bus.Write16(addr, v); err != nil {
		return err
	}

	return d.waitEEPROM()
}
