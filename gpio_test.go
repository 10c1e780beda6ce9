package main

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// countingPin wraps a gpiotest.Pin to count how often the wire is actually
// driven, so the write-on-diff-only contract can be observed.
type countingPin struct {
	*gpiotest.Pin
	outs int
}

func (p *countingPin) Out(l gpio.Level) error {
	p.outs++
	return p.Pin.Out(l)
}

func newTestBinding(invert bool) (*gpioBinding, *countingPin, *gpiotest.Pin) {
	out := &countingPin{Pin: &gpiotest.Pin{N: "ac1cmp_pin"}}
	in := &gpiotest.Pin{N: "commspin1_pin"}
	b := &gpioBinding{lines: map[PinIndex]*line{
		PinAC1Comp: {name: "ac1cmp_pin", pin: out, invert: invert},
		PinCommIn1: {name: "commspin1_pin", pin: in, isInput: true},
	}}
	return b, out, in
}

func TestGPIOWriteOnlyOnDiff(t *testing.T) {
	b, out, _ := newTestBinding(false)

	for i := 0; i < 3; i++ {
		if err := b.write(PinAC1Comp, true); err != nil {
			t.Fatal(err)
		}
	}
	if out.outs != 1 {
		t.Fatalf("3 identical writes issued %d wire writes, want 1", out.outs)
	}

	if err := b.write(PinAC1Comp, false); err != nil {
		t.Fatal(err)
	}
	if out.outs != 2 {
		t.Fatalf("changed value issued %d wire writes total, want 2", out.outs)
	}
}

func TestGPIOWriteAppliesInversion(t *testing.T) {
	b, out, _ := newTestBinding(true)

	if err := b.write(PinAC1Comp, true); err != nil {
		t.Fatal(err)
	}
	if out.L != gpio.Low {
		t.Fatalf("logical ON on an inverted line drove the wire %v, want Low", out.L)
	}

	if err := b.write(PinAC1Comp, false); err != nil {
		t.Fatal(err)
	}
	if out.L != gpio.High {
		t.Fatalf("logical OFF on an inverted line drove the wire %v, want High", out.L)
	}
}

func TestGPIOReadReportsWireLevel(t *testing.T) {
	b, _, in := newTestBinding(true)
	in.L = gpio.High
	if !b.read(PinCommIn1) {
		t.Fatal("a high input wire must read as true regardless of the output inversion policy")
	}
	in.L = gpio.Low
	if b.read(PinCommIn1) {
		t.Fatal("a low input wire must read as false")
	}
}

func TestGPIOHaltDrivesOutputsOff(t *testing.T) {
	b, out, _ := newTestBinding(false)
	if err := b.write(PinAC1Comp, true); err != nil {
		t.Fatal(err)
	}
	if err := b.Halt(); err != nil {
		t.Fatal(err)
	}
	if out.L != gpio.Low {
		t.Fatalf("Halt left the wire %v, want Low", out.L)
	}
}
