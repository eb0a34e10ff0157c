package mlx90632

import (
	"errors"
	"fmt"
	"testing"
)

var errBus = errors.New("i2c: remote I/O error")

// busOp is one expected register access. For reads value is returned, for
// writes it is the value the driver must write.
type busOp struct {
	write bool
	addr  uint16
	value uint16
	err   error
}

func (o busOp) String() string {
	if o.write {
		return fmt.Sprintf("write(0x%04x, 0x%04x)", o.addr, o.value)
	}
	return fmt.Sprintf("read(0x%04x)", o.addr)
}

func read(addr, value uint16) busOp { return busOp{addr: addr, value: value} }
func readErr(addr uint16) busOp { return busOp{addr: addr, err: errBus} }
func write(addr, value uint16) busOp { return busOp{write: true, addr: addr, value: value} }
func writeErr(addr, value uint16) busOp { return busOp{write: true, addr: addr, value: value, err: errBus} }
func readSigned(addr uint16, v int16) busOp { return read(addr, uint16(v)) }

// scriptBus checks that the driver performs exactly the scripted register
// accesses, in order.
type scriptBus struct {
	t   *testing.T
	ops []busOp
	n   int
}

func newScriptBus(t *testing.T, ops ...busOp) *scriptBus {
	return &scriptBus{t: t, ops: ops}
}

func (b *scriptBus) next(got busOp) busOp {
	b.t.Helper()
	if b.n >= len(b.ops) {
		b.t.Fatalf("Unexpected %v after %d scripted operations", got, len(b.ops))
	}

	want := b.ops[b.n]
	b.n++
	if got.write != want.write || got.addr != want.addr || (got.write && got.value != want.value) {
		b.t.Fatalf("Operation %d: got %v, expected %v", b.n, got, want)
	}
	return want
}

func (b *scriptBus) Read16(addr uint16) (uint16, error) {
	b.t.Helper()
	op := b.next(busOp{addr: addr})
	if op.err != nil {
		return 0, op.err
	}
	return op.value, nil
}

func (b *scriptBus) Write16(addr uint16, value uint16) error {
	b.t.Helper()
	return b.next(busOp{write: true, addr: addr, value: value}).err
}

// checkDone fails the test if scripted operations were left over.
func (b *scriptBus) checkDone() {
	b.t.Helper()
	if b.n != len(b.ops) {
		b.t.Errorf("Performed %d of %d scripted operations; next expected was %v", b.n, len(b.ops), b.ops[b.n])
	}
}

// memBus is a register file. EEPROM and control writes stick, the status
// register always reads as idle.
type memBus struct {
	regs   map[uint16]uint16
	writes []busOp
}

func newMemBus(regs map[uint16]uint16) *memBus {
	return &memBus{regs: regs}
}

func (b *memBus) Read16(addr uint16) (uint16, error) {
	if addr == regStatus {
		return 0, nil
	}
	return b.regs[addr], nil
}

func (b *memBus) Write16(addr uint16, value uint16) error {
	b.writes = append(b.writes, write(addr, value))
	if addr != regCommand {
		b.regs[addr] = value
	}
	return nil
}

type fakeClock struct {
	micros [][2]int
	millis []int
}

func (c *fakeClock) SleepMicros(min, max int) {
	c.micros = append(c.micros, [2]int{min, max})
}

func (c *fakeClock) SleepMillis(ms int) {
	c.millis = append(c.millis, ms)
}

func newTestDev(t *testing.T, ops ...busOp) (*Dev, *scriptBus, *fakeClock) {
	bus := newScriptBus(t, ops...)
	clock := &fakeClock{}
	return New(bus, clock, nil), bus, clock
}
