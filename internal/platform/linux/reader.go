// Package linux implements the evdev reader and uinput writer that back
// the engine's Keyboard capability on Linux.
package linux

import (
	"errors"
	"fmt"
	"io"

	evdev "github.com/holoplot/go-evdev"

	"github.com/uplg/kbremap/internal/engine"
	"github.com/uplg/kbremap/internal/keycode"
)

// keyboardProbeMin/Max bound the key range KEY_A (30) through KEY_M (50),
// which spans the home and bottom letter rows, used to tell a real
// keyboard apart from e.g. a mouse or a power button that also happens
// to expose EV_KEY.
const (
	keyboardProbeMin = 30
	keyboardProbeMax = 50
)

// Reader wraps one physical input device opened for reading.
type Reader struct {
	path   string
	name   string
	device *evdev.InputDevice
}

// OpenReader opens path and probes it for keyboard capability. The
// caller is responsible for calling Close.
func OpenReader(path string) (*Reader, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	name, err := dev.Name()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("reading name of %s: %w", path, err)
	}

	r := &Reader{path: path, name: name, device: dev}
	if !r.isKeyboard() {
		dev.Close()
		return nil, fmt.Errorf("%s (%s): %w", path, name, ErrNotAKeyboard)
	}
	return r, nil
}

func (r *Reader) isKeyboard() bool {
	for _, t := range r.device.CapableTypes() {
		if t != evdev.EV_KEY {
			continue
		}
		for _, code := range r.device.CapableEvents(evdev.EV_KEY) {
			if int(code) >= keyboardProbeMin && int(code) <= keyboardProbeMax {
				return true
			}
		}
	}
	return false
}

// Path reports the device node this reader was opened from.
func (r *Reader) Path() string { return r.path }

// Name reports the device's self-reported product name.
func (r *Reader) Name() string { return r.name }

// DeviceID reports the USB/Bluetooth identity used by engine.DeviceMatchers.
func (r *Reader) DeviceID() (engine.DeviceID, error) {
	id, err := r.device.InputID()
	if err != nil {
		return engine.DeviceID{}, fmt.Errorf("reading input id of %s: %w", r.path, err)
	}
	bustype, vendor, product, version := id.BusType, id.Vendor, id.Product, id.Version
	return engine.DeviceID{
		Bustype: &bustype,
		Vendor:  &vendor,
		Product: &product,
		Version: &version,
	}, nil
}

// Grab takes exclusive control of the device so the kernel stops
// delivering its events to any other listener.
func (r *Reader) Grab() error {
	if err := r.device.Grab(); err != nil {
		return fmt.Errorf("grabbing %s: %w", r.path, err)
	}
	return nil
}

// Ungrab releases exclusive control.
func (r *Reader) Ungrab() error {
	if err := r.device.Ungrab(); err != nil {
		return fmt.Errorf("ungrabbing %s: %w", r.path, err)
	}
	return nil
}

// Close closes the underlying device node.
func (r *Reader) Close() error { return r.device.Close() }

// ReadEvent blocks for the next event and translates it to engine.Event.
// ok is false for event types the engine has no use for (anything other
// than EV_KEY); the caller should simply loop and read again.
func (r *Reader) ReadEvent() (ev engine.Event, ok bool, err error) {
	raw, err := r.device.ReadOne()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return engine.Event{}, false, fmt.Errorf("reading %s: %w", r.path, ErrShortRead)
		}
		return engine.Event{}, false, fmt.Errorf("reading %s: %w", r.path, err)
	}
	if raw.Type != evdev.EV_KEY {
		return engine.Event{}, false, nil
	}
	return engine.Event{Code: keycode.Code(raw.Code), Value: keyState(raw.Value)}, true, nil
}

func keyState(value int32) engine.KeyState {
	switch value {
	case 0:
		return engine.Up
	case 1:
		return engine.Down
	default:
		return engine.Other
	}
}
