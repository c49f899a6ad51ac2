package linux

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/uplg/kbremap/internal/engine"
	"github.com/uplg/kbremap/internal/keycode"
)

// uinput ioctl and event-type constants. golang.org/x/sys/unix does not
// export these (they are not syscall numbers, just driver-specific
// request codes), so they are declared here the same way every other
// uinput-from-scratch Go implementation does.
const (
	evSyn     = 0x00
	evKey     = 0x01
	synReport = 0

	uinputMaxNameSize = 80
	uiSetEvbit        = 0x40045564
	uiSetKeybit       = 0x40045565
	uiDevCreate       = 0x5501
	uiDevDestroy      = 0x5502
	uiDevSetup        = 0x405c5503

	busUSB = 0x03
)

// leftShiftCode, rightShiftCode, capsLockCode are the fixed Linux evdev
// constants for the three keys the engine's shift-inversion logic needs
// to name directly.
const (
	leftShiftCode  keycode.Code = 42
	rightShiftCode keycode.Code = 54
	capsLockCode   keycode.Code = 58
)

type uinputSetup struct {
	ID struct {
		Bustype uint16
		Vendor  uint16
		Product uint16
		Version uint16
	}
	Name      [uinputMaxNameSize]byte
	FFEffects uint32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Writer is a virtual keyboard backed by /dev/uinput, implementing
// engine.Keyboard.
type Writer struct {
	mu sync.Mutex
	fd int
}

// NewWriter opens /dev/uinput, registers every code up to keycode.Max,
// and creates the virtual device under the given product name.
func NewWriter(name string) (*Writer, error) {
	fd, err := unix.Open("/dev/uinput", unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("opening /dev/uinput: %w (is the user in the input group?)", err)
	}

	w := &Writer{fd: fd}

	if err := w.ioctlInt(uiSetEvbit, evKey); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("UI_SET_EVBIT: %w", err)
	}
	for code := 0; code < keycode.Max; code++ {
		if err := w.ioctlInt(uiSetKeybit, code); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("UI_SET_KEYBIT(%d): %w", code, err)
		}
	}

	var setup uinputSetup
	setup.ID.Bustype = busUSB
	setup.ID.Vendor = 0x1d50
	setup.ID.Product = 0x6b72
	setup.ID.Version = 1
	copy(setup.Name[:], name)

	if err := w.ioctlPtr(uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("UI_DEV_SETUP: %w", err)
	}
	if err := w.ioctlInt(uiDevCreate, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("UI_DEV_CREATE: %w", err)
	}

	// Give udev time to create the corresponding /dev/input node before
	// any caller tries to probe it (e.g. to confirm it is not picked up
	// as an input device to remap).
	time.Sleep(100 * time.Millisecond)

	return w, nil
}

// Close destroys the virtual device and releases the file descriptor.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ioctlInt(uiDevDestroy, 0)
	return unix.Close(w.fd)
}

func (w *Writer) ioctlInt(req uint, val int) error {
	return unix.IoctlSetInt(w.fd, req, val)
}

func (w *Writer) ioctlPtr(req uint, ptr unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(w.fd), uintptr(req), uintptr(ptr))
	if errno != 0 {
		return errno
	}
	return nil
}

func (w *Writer) write(evType, code uint16, value int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ev := inputEvent{Type: evType, Code: code, Value: value}
	unix.Gettimeofday(&ev.Time)

	buf := make([]byte, unsafe.Sizeof(ev))
	*(*inputEvent)(unsafe.Pointer(&buf[0])) = ev
	n, err := unix.Write(w.fd, buf)
	if err != nil {
		return fmt.Errorf("writing input_event: %w", err)
	}
	if n != len(buf) {
		return ErrShortWrite
	}
	return nil
}

// Send emits ev verbatim.
func (w *Writer) Send(ev engine.Event) error {
	return w.write(evKey, uint16(ev.Code), valueOf(ev.Value))
}

// SendModCode emits ev with its code replaced, value preserved.
func (w *Writer) SendModCode(code keycode.Code, ev engine.Event) error {
	return w.write(evKey, uint16(code), valueOf(ev.Value))
}

// SendModCodeValue emits code with a value derived from upNotDown,
// ignoring ev's own value. ev is passed by value, so this can never
// observably mutate the caller's event.
func (w *Writer) SendModCodeValue(code keycode.Code, upNotDown bool, ev engine.Event) error {
	value := int32(1)
	if upNotDown {
		value = 0
	}
	return w.write(evKey, uint16(code), value)
}

// Synchronize emits a standalone EV_SYN/SYN_REPORT record.
func (w *Writer) Synchronize() error {
	return w.write(evSyn, synReport, 0)
}

// LeftShiftCode, RightShiftCode, CapsLockCode return the fixed Linux
// evdev constants the engine needs for shift-inversion and caps-lock
// bookkeeping.
func (w *Writer) LeftShiftCode() keycode.Code  { return leftShiftCode }
func (w *Writer) RightShiftCode() keycode.Code { return rightShiftCode }
func (w *Writer) CapsLockCode() keycode.Code   { return capsLockCode }

// BlockKey is a no-op: the source device is grabbed, so the kernel
// never delivers the raw event to anything else.
func (w *Writer) BlockKey() error { return nil }

func valueOf(s engine.KeyState) int32 {
	switch s {
	case engine.Down:
		return 1
	case engine.Up:
		return 0
	default:
		return 2
	}
}
