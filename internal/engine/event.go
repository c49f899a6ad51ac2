// Package engine implements the layered keymap state machine: it tracks
// held keys and modifiers, selects among configured layouts, and emits
// zero or more transformed events through a Keyboard for each physical
// event it observes.
package engine

import "github.com/uplg/kbremap/internal/keycode"

// KeyState is the three-valued transition state of a key event.
type KeyState int

const (
	// Up indicates a key release.
	Up KeyState = iota
	// Down indicates a key press.
	Down
	// Other covers auto-repeat and any other non-transition event the
	// platform reports; the engine neither updates state nor re-layers
	// for it, but still maps and forwards it.
	Other
)

// Event is the key event value type the engine consumes and the shape
// every Keyboard call re-emits. It is passed by value throughout, so a
// Keyboard implementation never needs to restore it after use.
type Event struct {
	Code  keycode.Code
	Value KeyState
}
