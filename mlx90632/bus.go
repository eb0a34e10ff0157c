package mlx90632

import (
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultI2CAddr is the factory default address of the MLX90632.
const DefaultI2CAddr = 0x3a

// Bus reads and writes the device's 16-bit registers.
type Bus interface {
	Read16(addr uint16) (uint16, error)
	Write16(addr uint16, value uint16) error
}

// Clock blocks the calling goroutine. SleepMicros may sleep for any duration
// within [min, max].
type Clock interface {
	SleepMicros(min, max int)
	SleepMillis(ms int)
}

// I2CBus is a Bus on top of a periph.io I²C bus. Register addresses and values
// are both sent big-endian.
type I2CBus struct {
	dev i2c.Dev
}

// NewI2CBus returns an I2CBus for the device at addr on the given bus.
func NewI2CBus(bus i2c.Bus, addr uint16) *I2CBus {
	return &I2CBus{
		dev: i2c.Dev{Bus: bus, Addr: addr},
	}
}

func (b *I2CBus) String() string {
	return b.dev.String()
}

func (b *I2CBus) Read16(addr uint16) (uint16, error) {
	w := make([]byte, 2)
	binary.BigEndian.PutUint16(w, addr)

	r := make([]byte, 2)
	if err := b.dev.Tx(w, r); err != nil {
		return 0, fmt.Errorf("mlx90632: error reading register 0x%04x: %w", addr, err)
	}

	return binary.BigEndian.Uint16(r), nil
}

func (b *I2CBus) Write16(addr uint16, value uint16) error {
	w := make([]byte, 4)
	binary.BigEndian.PutUint16(w, addr)
	binary.BigEndian.PutUint16(w[2:], value)

	if err := b.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("mlx90632: error writing register 0x%04x: %w", addr, err)
	}

	return nil
}

// SleepClock is a Clock backed by time.Sleep. It always sleeps the minimum of
// a range.
type SleepClock struct{}

func (SleepClock) SleepMicros(min, max int) {
	time.Sleep(time.Duration(min) * time.Microsecond)
}

func (SleepClock) SleepMillis(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
