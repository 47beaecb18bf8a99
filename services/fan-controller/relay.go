package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/warthog618/go-gpiocdev"
)

// RelayState is the level of the relay line: 0 = off/low, 1 = on/high.
type RelayState int

const (
	RelayOff RelayState = 0
	RelayOn  RelayState = 1
)

func (s RelayState) String() string {
	if s == RelayOn {
		return "on"
	}
	return "off"
}

// Payload is what goes on the status topic.
func (s RelayState) Payload() string {
	return strconv.Itoa(int(s))
}

// Relay is a single digital output that can be read back.
type Relay interface {
	State() (RelayState, error)
	Set(RelayState) error
	Close() error
}

// GPIORelay drives a relay through the Linux GPIO character device.
type GPIORelay struct {
	line   *gpiocdev.Line
	chip   string
	offset int
}

// OpenGPIORelay requests the line as an output at its current level, so a
// restart of the controller never toggles the fan. With activeLow the kernel
// inverts the physical level and RelayOn still means "fan running".
func OpenGPIORelay(chip string, offset int, activeLow bool) (*GPIORelay, error) {
	var polarity []gpiocdev.LineReqOption
	if activeLow {
		polarity = append(polarity, gpiocdev.AsActiveLow)
	}

	in, err := gpiocdev.RequestLine(chip, offset, append([]gpiocdev.LineReqOption{gpiocdev.AsInput}, polarity...)...)
	if err != nil {
		return nil, fmt.Errorf("read %s line %d: %w", chip, offset, err)
	}
	current, err := readAndRelease(in)
	if err != nil {
		return nil, fmt.Errorf("read %s line %d value: %w", chip, offset, err)
	}

	line, err := gpiocdev.RequestLine(chip, offset, append([]gpiocdev.LineReqOption{gpiocdev.AsOutput(current)}, polarity...)...)
	if err != nil {
		return nil, fmt.Errorf("request %s line %d as output: %w", chip, offset, err)
	}

	return &GPIORelay{line: line, chip: chip, offset: offset}, nil
}

type inputLine interface {
	Value() (int, error)
	Close() error
}

// readAndRelease reads the level and always releases the line. A line that
// could not be released cannot be requested again as an output.
func readAndRelease(l inputLine) (int, error) {
	v, err := l.Value()
	if cerr := l.Close(); cerr != nil {
		return 0, errors.Join(err, fmt.Errorf("release: %w", cerr))
	}
	return v, err
}

// State reads the level back from the kernel, not from a cached value.
func (r *GPIORelay) State() (RelayState, error) {
	v, err := r.line.Value()
	if err != nil {
		return RelayOff, fmt.Errorf("read %s line %d: %w", r.chip, r.offset, err)
	}
	if v != 0 {
		return RelayOn, nil
	}
	return RelayOff, nil
}

func (r *GPIORelay) Set(s RelayState) error {
	if err := r.line.SetValue(int(s)); err != nil {
		return fmt.Errorf("set %s line %d to %d: %w", r.chip, r.offset, int(s), err)
	}
	return nil
}

// Close releases the line back to the kernel.
func (r *GPIORelay) Close() error {
	return r.line.Close()
}
