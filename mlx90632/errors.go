package mlx90632

import "errors"

// Errors returned by the driver. Errors from the Bus are returned as they are.
var (
	// ErrTimeout is returned when a poll loop used up its attempts without
	// seeing the status bit it was waiting for.
	ErrTimeout = errors.New("mlx90632: timed out waiting for device")

	// ErrInvalidArgument is returned for bad channel positions, unknown
	// measurement types and unknown refresh rates.
	ErrInvalidArgument = errors.New("mlx90632: invalid argument")

	// ErrUnsupportedDSP is returned by Init when the EEPROM does not hold DSP v5
	// calibration.
	ErrUnsupportedDSP = errors.New("mlx90632: unsupported EEPROM DSP version")

	// ErrRange is returned when the extended range object accumulation does not
	// fit in 16 bits.
	ErrRange = errors.New("mlx90632: value out of range")
)
