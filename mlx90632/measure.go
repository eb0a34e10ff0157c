package mlx90632

import "fmt"

// Measurement table positions.
const (
	// Medical measurements alternate between table entries 1 and 2.
	medicalPos1 = 1
	medicalPos2 = 2

	// Extended range measurements use entries 17, 18 and 19, in that order.
	extendedPos1 = 17
	extendedPos2 = 18
	extendedPos3 = 19

	// A medical burst always finishes on entry 2. The driver relies on this
	// instead of reading the cycle position after a burst.
	burstMedicalPos = medicalPos2
)

// RawSample is a pair of signed ADC readings. New is from the most recently
// completed half of the measurement cycle.
type RawSample struct {
	New int16
	Old int16
}

// Raw holds one medical range reading.
type Raw struct {
	Ambient RawSample
	Object  RawSample
}

// ExtendedRaw holds one extended range reading. The object value is already
// combined from the three table entries.
type ExtendedRaw struct {
	Ambient RawSample
	Object  int16
}

// SelectChannels maps the channel position reported by the device to the
// table entries holding the new and the old medical object data.
func SelectChannels(pos int) (int, int, error) {
	switch pos {
	case medicalPos1:
		return medicalPos1, medicalPos2, nil
	case medicalPos2:
		return medicalPos2, medicalPos1, nil
	default:
		return 0, 0, fmt.Errorf("%w: channel position %d", ErrInvalidArgument, pos)
	}
}

// TriggerMeasurement clears the data ready flag so the device starts filling a
// fresh half cycle.
func (d *Dev) TriggerMeasurement() error {
	status, err := d.bus.Read16(regStatus)
	if err != nil {
		return err
	}

	return d.bus.Write16(regStatus, status&^statDataReady)
}

// WaitForMeasurement polls until the device sets the data ready flag and
// returns the channel position of the new data.
func (d *Dev) WaitForMeasurement() (int, error) {
	status, err := d.poll(d.opts.PollAttempts, func(status uint16) bool {
		return status&statDataReady != 0
	})
	if err != nil {
		return 0, err
	}

	return cyclePosition(status), nil
}

// StartMeasurement triggers a measurement and waits for it. It returns the
// channel position of the new data.
func (d *Dev) StartMeasurement() (int, error) {
	if err := d.TriggerMeasurement(); err != nil {
		return 0, err
	}

	return d.WaitForMeasurement()
}

// TriggerMeasurementSingle clears the data ready flag and starts a single
// measurement. It is only meaningful in step mode.
func (d *Dev) TriggerMeasurementSingle() error {
	if err := d.TriggerMeasurement(); err != nil {
		return err
	}

	ctrl, err := d.bus.Read16(regControl)
	if err != nil {
		return err
	}

	return d.bus.Write16(regControl, ctrl|ctrlSOCMask)
}

// TriggerMeasurementBurst sets the start of burst bit.
func (d *Dev) TriggerMeasurementBurst() error {
	ctrl, err := d.bus.Read16(regControl)
	if err != nil {
		return err
	}

	return d.bus.Write16(regControl, ctrl|ctrlSOBMask)
}

// WaitForMeasurementBurst polls until the device is no longer busy.
func (d *Dev) WaitForMeasurementBurst() error {
	_, err := d.poll(d.opts.BurstPollAttempts, func(status uint16) bool {
		return status&statBusy == 0
	})
	return err
}

// StartMeasurementBurst triggers a burst, sleeps for the time the device needs
// to refresh the whole measurement table and then waits for it to go idle.
func (d *Dev) StartMeasurementBurst() error {
	if err := d.TriggerMeasurementBurst(); err != nil {
		return err
	}

	ms, err := d.DatasetReadyTime()
	if err != nil {
		return err
	}
	d.clock.SleepMillis(ms)

	return d.WaitForMeasurementBurst()
}

// poll reads the status register up to attempts times, sleeping between reads
// that don't satisfy done.
func (d *Dev) poll(attempts int, done func(status uint16) bool) (uint16, error) {
	for i := 0; i < attempts; i++ {
		status, err := d.bus.Read16(regStatus)
		if err != nil {
			return 0, err
		}

		if done(status) {
			return status, nil
		}

		d.clock.SleepMicros(d.opts.BackoffMinMicros, d.opts.BackoffMaxMicros)
	}

	return 0, fmt.Errorf("%w: no status change after %d reads", ErrTimeout, attempts)
}

// MeasurementTime returns the time in ms the device needs to refresh the table
// entry configured by the given EEPROM MEAS word.
func (d *Dev) MeasurementTime(eeAddr uint16) (int, error) {
	meas, err := d.bus.Read16(eeAddr)
	if err != nil {
		return 0, err
	}

	return measurementTime(meas), nil
}

func measurementTime(meas uint16) int {
	return measMaxTime >> ((meas & refreshRateMask) >> refreshRateShift)
}

// DatasetReadyTime returns the time in ms a burst needs to refresh every table
// entry of the current measurement type, which must be a burst type.
func (d *Dev) DatasetReadyTime() (int, error) {
	t, err := d.MeasurementType()
	if err != nil {
		return 0, err
	}

	var entries []uint16
	switch t {
	case MedicalBurst:
		entries = []uint16{eeMedicalMeas1, eeMedicalMeas2}
	case ExtendedBurst:
		entries = []uint16{eeExtendedMeas1, eeExtendedMeas2, eeExtendedMeas3}
	default:
		return 0, fmt.Errorf("%w: %v is not a burst measurement type", ErrInvalidArgument, t)
	}

	total := 0
	for _, addr := range entries {
		ms, err := d.MeasurementTime(addr)
		if err != nil {
			return 0, err
		}
		total += ms
	}

	return total, nil
}

// acquire runs start until it reports an accepted channel position, at most
// attempts times.
func (d *Dev) acquire(start func() (int, error), accept func(pos int) bool, attempts int) (int, error) {
	for i := 0; i < attempts; i++ {
		pos, err := start()
		if err != nil {
			return 0, err
		}

		if accept(pos) {
			return pos, nil
		}
	}

	return 0, fmt.Errorf("%w: table not complete after %d measurements", ErrTimeout, attempts)
}

func anyPosition(int) bool { return true }

func lastExtendedPosition(pos int) bool { return pos == extendedPos3 }

func (d *Dev) startBurstAt(pos int) func() (int, error) {
	return func() (int, error) {
		if err := d.StartMeasurementBurst(); err != nil {
			return 0, err
		}
		return pos, nil
	}
}

// ReadRaw triggers a continuous mode medical measurement, waits for it and
// reads the raw values.
func (d *Dev) ReadRaw() (Raw, error) {
	pos, err := d.acquire(d.StartMeasurement, anyPosition, 1)
	if err != nil {
		return Raw{}, err
	}

	return d.ReadRawNoWait(pos)
}

// ReadRawBurst triggers a medical burst, waits for it and reads the raw values.
func (d *Dev) ReadRawBurst() (Raw, error) {
	pos, err := d.acquire(d.startBurstAt(burstMedicalPos), anyPosition, 1)
	if err != nil {
		return Raw{}, err
	}

	return d.ReadRawNoWait(pos)
}

// ReadRawNoWait reads medical raw values for the given channel position
// without triggering a measurement.
func (d *Dev) ReadRawNoWait(pos int) (Raw, error) {
	var raw Raw

	ambient, err := d.readAmbientRaw(medicalPos1, medicalPos2)
	if err != nil {
		return raw, err
	}
	raw.Ambient = ambient

	object, err := d.readObjectRaw(pos)
	if err != nil {
		return raw, err
	}
	raw.Object = object

	return raw, nil
}

// ReadRawExtended triggers continuous mode extended range measurements until
// the last table entry is refreshed and reads the raw values.
func (d *Dev) ReadRawExtended() (ExtendedRaw, error) {
	if _, err := d.acquire(d.StartMeasurement, lastExtendedPosition, d.opts.ExtendedAttempts); err != nil {
		return ExtendedRaw{}, err
	}

	return d.ReadRawExtendedNoWait()
}

// ReadRawExtendedBurst triggers an extended range burst, waits for it and reads
// the raw values.
func (d *Dev) ReadRawExtendedBurst() (ExtendedRaw, error) {
	if _, err := d.acquire(d.startBurstAt(extendedPos3), lastExtendedPosition, 1); err != nil {
		return ExtendedRaw{}, err
	}

	return d.ReadRawExtendedNoWait()
}

// ReadRawExtendedNoWait reads extended range raw values without triggering a
// measurement.
func (d *Dev) ReadRawExtendedNoWait() (ExtendedRaw, error) {
	var raw ExtendedRaw

	ambient, err := d.readAmbientRaw(extendedPos1, extendedPos2)
	if err != nil {
		return raw, err
	}
	raw.Ambient = ambient

	object, err := d.readObjectRawExtended()
	if err != nil {
		return raw, err
	}
	raw.Object = object

	return raw, nil
}

func (d *Dev) readAmbientRaw(newPos, oldPos int) (RawSample, error) {
	var s RawSample

	v, err := d.bus.Read16(ram3(newPos))
	if err != nil {
		return s, err
	}
	s.New = int16(v)

	v, err = d.bus.Read16(ram3(oldPos))
	if err != nil {
		return s, err
	}
	s.Old = int16(v)

	return s, nil
}

func (d *Dev) readObjectRaw(pos int) (RawSample, error) {
	var s RawSample

	newPos, oldPos, err := SelectChannels(pos)
	if err != nil {
		return s, err
	}

	s.New, err = d.readObjectAverage(newPos)
	if err != nil {
		return s, err
	}

	s.Old, err = d.readObjectAverage(oldPos)
	if err != nil {
		return s, err
	}

	return s, nil
}

// readObjectAverage averages the two object channels of one table entry.
func (d *Dev) readObjectAverage(pos int) (int16, error) {
	a, err := d.bus.Read16(ram2(pos))
	if err != nil {
		return 0, err
	}

	b, err := d.bus.Read16(ram1(pos))
	if err != nil {
		return 0, err
	}

	return int16((int32(int16(a)) + int32(int16(b))) / 2), nil
}

// readObjectRawExtended combines the object channels of entries 17, 18 and 19.
func (d *Dev) readObjectRawExtended() (int16, error) {
	steps := []struct {
		addr    uint16
		combine func(acc, v int32) int32
	}{
		{ram1(extendedPos1), func(acc, v int32) int32 { return v }},
		{ram2(extendedPos1), func(acc, v int32) int32 { return acc - v }},
		{ram1(extendedPos2), func(acc, v int32) int32 { return acc - v }},
		{ram2(extendedPos2), func(acc, v int32) int32 { return (acc + v) / 2 }},
		{ram1(extendedPos3), func(acc, v int32) int32 { return acc + v }},
		{ram2(extendedPos3), func(acc, v int32) int32 { return acc + v }},
	}

	var acc int32
	for _, s := range steps {
		v, err := d.bus.Read16(s.addr)
		if err != nil {
			return 0, err
		}
		acc = s.combine(acc, int32(int16(v)))
	}

	if acc > 32767 || acc < -32768 {
		return 0, fmt.Errorf("%w: extended object value %d", ErrRange, acc)
	}

	return int16(acc), nil
}
