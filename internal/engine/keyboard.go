package engine

import "github.com/uplg/kbremap/internal/keycode"

// Keyboard is the platform capability the engine injects transformed
// events through. Implementations must complete synchronously (or block
// briefly on a syscall); the engine never awaits or schedules around a
// Keyboard call.
type Keyboard interface {
	// Send emits e verbatim.
	Send(e Event) error
	// SendModCode emits e with its code replaced by code; the value is
	// preserved.
	SendModCode(code keycode.Code, e Event) error
	// SendModCodeValue emits an event with the given code and a value
	// derived from upNotDown, independent of e's own value.
	SendModCodeValue(code keycode.Code, upNotDown bool, e Event) error
	// Synchronize emits a boundary marker separating logical groups of
	// events (EV_SYN/SYN_REPORT on Linux).
	Synchronize() error
	// LeftShiftCode, RightShiftCode, and CapsLockCode report the codes
	// this platform uses for those modifiers.
	LeftShiftCode() keycode.Code
	RightShiftCode() keycode.Code
	CapsLockCode() keycode.Code
	// BlockKey signals "consume the triggering event, do not deliver it
	// downstream". Meaning is platform-dependent; a no-op on Linux.
	BlockKey() error
}
