package mlx90632

import (
	"fmt"
	"strings"
)

// MeasurementType selects the calibration range and the acquisition mode. The
// low bits are the hardware MTYP selector; the high bit exists only in
// software and marks sleeping step (burst) mode.
type MeasurementType uint8

const (
	MedicalContinuous  MeasurementType = mtypMedical
	ExtendedContinuous MeasurementType = mtypExtended
	MedicalBurst       MeasurementType = burstFlag | mtypMedical
	ExtendedBurst      MeasurementType = burstFlag | mtypExtended
)

const burstFlag = 0x80

var measurementTypeNames = map[MeasurementType]string{
	MedicalContinuous:  "medical",
	ExtendedContinuous: "extended",
	MedicalBurst:       "medical-burst",
	ExtendedBurst:      "extended-burst",
}

// ParseMeasurementType parses the names printed by MeasurementType.String.
func ParseMeasurementType(s string) (MeasurementType, error) {
	for t, name := range measurementTypeNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown measurement type %q", ErrInvalidArgument, s)
}

func (t MeasurementType) String() string {
	if name, ok := measurementTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MeasurementType(0x%02x)", uint8(t))
}

// Valid reports whether t is one of the four legal measurement types.
func (t MeasurementType) Valid() bool {
	_, ok := measurementTypeNames[t]
	return ok
}

// Burst reports whether t is a sleeping step type.
func (t MeasurementType) Burst() bool {
	return t&burstFlag != 0
}

// Extended reports whether t uses the extended object temperature range.
func (t MeasurementType) Extended() bool {
	return t&^burstFlag == mtypExtended
}

func (t MeasurementType) mtyp() uint16 {
	return uint16(t &^ burstFlag)
}

// decodeMeasurementType maps a control register value to a MeasurementType.
func decodeMeasurementType(ctrl uint16) (MeasurementType, error) {
	var t MeasurementType
	switch mtyp := (ctrl & ctrlMeasTypeMask) >> ctrlMeasTypeShift; mtyp {
	case mtypMedical:
		t = MedicalContinuous
	case mtypExtended:
		t = ExtendedContinuous
	default:
		return 0, fmt.Errorf("%w: measurement type bits 0x%02x", ErrInvalidArgument, mtyp)
	}

	switch pwr := ctrl & ctrlPowerModeMask; pwr {
	case powerModeContinuous:
		return t, nil
	case powerModeSleepStep:
		return t | burstFlag, nil
	default:
		return 0, fmt.Errorf("%w: power mode bits 0x%x", ErrInvalidArgument, pwr>>ctrlPowerModeShift)
	}
}

// MeasurementType reads the current measurement type from the control
// register.
func (d *Dev) MeasurementType() (MeasurementType, error) {
	ctrl, err := d.bus.Read16(regControl)
	if err != nil {
		return 0, err
	}

	return decodeMeasurementType(ctrl)
}

// SetMeasurementType resets the device and switches it to t. The type is
// written with the device halted and the final power mode is written
// separately, since the hardware does not allow some direct power mode
// transitions.
func (d *Dev) SetMeasurementType(t MeasurementType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: measurement type 0x%02x", ErrInvalidArgument, uint8(t))
	}

	if err := d.Reset(); err != nil {
		return err
	}

	ctrl, err := d.bus.Read16(regControl)
	if err != nil {
		return err
	}

	ctrl &^= ctrlMeasTypeMask | ctrlPowerModeMask
	ctrl |= t.mtyp()<<ctrlMeasTypeShift | powerModeHalt
	if err := d.bus.Write16(regControl, ctrl); err != nil {
		return err
	}

	ctrl, err = d.bus.Read16(regControl)
	if err != nil {
		return err
	}

	ctrl &^= ctrlPowerModeMask
	if t.Burst() {
		ctrl |= powerModeSleepStep
	} else {
		ctrl |= powerModeContinuous
	}

	return d.bus.Write16(regControl, ctrl)
}
