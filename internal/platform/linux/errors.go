package linux

import "errors"

// ErrShortRead is returned when reading an input device node yields
// fewer bytes than one input_event record.
var ErrShortRead = errors.New("short read from input device")

// ErrShortWrite is returned when writing to /dev/uinput accepts fewer
// bytes than the input_event record being injected.
var ErrShortWrite = errors.New("short write to uinput device")

var (
	ErrNotAKeyboard      = errors.New("device does not expose keyboard capabilities")
	ErrAlreadyRegistered = errors.New("device already registered")
)
