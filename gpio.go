package main

import (
	"errors"
	"fmt"
	"strconv"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// errGPIODirection distinguishes a direction-configuration failure from a
// line-enable failure; main.go classifies initGPIO's error with errors.Is
// against this sentinel to pick the exit code.
var errGPIODirection = errors.New("gpio direction setup failed")

// line is one named logical GPIO line: a periph.io pin handle plus the
// inversion policy. Inversion is applied here and nowhere else; internal
// state always uses 1 = ON. It applies to outputs only, inputs read the
// wire level directly.
type line struct {
	name     string
	pin      gpio.PinIO
	invert   bool
	isInput  bool
	last     bool
	haveLast bool
}

// gpioBinding owns all ten configured lines: six actuator outputs and four
// command-link lines (two in, two out).
type gpioBinding struct {
	lines map[PinIndex]*line
}

// initGPIO initializes the periph.io host drivers once and binds every
// configured line by its sysfs GPIO number.
func initGPIO(cfg Config) (*gpioBinding, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio host init: %w", err)
	}

	b := &gpioBinding{lines: map[PinIndex]*line{}}

	outputs := map[PinIndex]bool{
		PinAC1Comp:  true,
		PinAC1Fan:   true,
		PinAC1Valve: true,
		PinAC2Comp:  true,
		PinAC2Fan:   true,
		PinAC2Valve: true,
		PinCommOut1: true,
		PinCommOut2: true,
		PinCommIn1:  false,
		PinCommIn2:  false,
	}

	for idx := PinIndex(0); idx < numPins; idx++ {
		num := cfg.Pin[idx]
		p := gpioreg.ByName(strconv.Itoa(num))
		if p == nil {
			return nil, fmt.Errorf("gpio line %d (%s) not found", num, pinConfigKey[idx])
		}

		l := &line{name: pinConfigKey[idx], pin: p}

		if outputs[idx] {
			l.invert = cfg.InvertOutput
			// Drive the logical "off" level from the very first moment the
			// line becomes an output: on an active-low board that is the
			// high wire level, so relays stay released through startup.
			off := gpio.Low
			if l.invert {
				off = gpio.High
			}
			if err := p.Out(off); err != nil {
				return nil, fmt.Errorf("%w: gpio line %d direction out: %v", errGPIODirection, num, err)
			}
			l.last = false
			l.haveLast = true
		} else {
			l.isInput = true
			if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
				return nil, fmt.Errorf("%w: gpio line %d direction in: %v", errGPIODirection, num, err)
			}
		}

		b.lines[idx] = l
	}

	return b, nil
}

// write drives an output line, applying the inversion policy, and only
// issues the underlying sysfs write if the logical value changed since the
// last write.
func (b *gpioBinding) write(idx PinIndex, on bool) error {
	l := b.lines[idx]
	if l.haveLast && l.last == on {
		return nil
	}
	level := gpio.Level(on)
	if l.invert {
		level = !level
	}
	if err := l.pin.Out(level); err != nil {
		return fmt.Errorf("gpio write %s: %w", l.name, err)
	}
	l.last = on
	l.haveLast = true
	return nil
}

// read samples a digital input line. The inversion policy does not apply to
// inputs: the command link's bit encoding is a wire-level contract with the
// sibling controller.
func (b *gpioBinding) read(idx PinIndex) bool {
	l := b.lines[idx]
	return bool(l.pin.Read())
}

// Halt disables every output line, driving it to its configured "off"
// level, following the conn.Resource convention. Used on every fatal exit
// path.
func (b *gpioBinding) Halt() error {
	var firstErr error
	for idx, l := range b.lines {
		if l.isInput {
			continue
		}
		if err := b.write(idx, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
