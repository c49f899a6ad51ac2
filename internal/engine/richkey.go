package engine

import "github.com/uplg/kbremap/internal/keycode"

// HalfInvertedKey is a single mapped key carrying shift-inversion and
// caps-lock semantics, as bound to one side of a layout-string token.
type HalfInvertedKey struct {
	Code             keycode.Code
	InvertShift      bool
	CapsLockNoModify bool
}

// richKey is the dense-table entry type for a Rich layout. It is Go's
// substitute for a closed tagged union: one unexported interface, a
// handful of unexported implementations, each owning its own dispatch.
type richKey interface {
	sendEvent(keyState []bool, ev Event, kb Keyboard) error
}

// noopKey forwards the triggering event untransformed. Unassigned slots
// in a Rich layout hold a nil richKey rather than a noopKey; richLayout
// forwards those the same way, so they behave as identity without any
// initialisation pass.
type noopKey struct{}

func (noopKey) sendEvent(_ []bool, ev Event, kb Keyboard) error {
	return kb.Send(ev)
}

// directKey swaps the code and leaves the value untouched.
type directKey struct {
	Code keycode.Code
}

func (d directKey) sendEvent(_ []bool, ev Event, kb Keyboard) error {
	return kb.SendModCode(d.Code, ev)
}

// halfKey emits with shift-inversion semantics.
type halfKey struct {
	Half HalfInvertedKey
}

func (h halfKey) sendEvent(keyState []bool, ev Event, kb Keyboard) error {
	ls, rs, cap := modifierSnapshot(keyState, kb)
	return sendHalfInverted(h.Half, ev, ls, rs, cap, kb)
}

// fullKey picks one of two halves based on the live shift/caps-lock
// state, then emits as halfKey would.
type fullKey struct {
	NoShift HalfInvertedKey
	Shift   HalfInvertedKey
}

func (f fullKey) sendEvent(keyState []bool, ev Event, kb Keyboard) error {
	ls, rs, cap := modifierSnapshot(keyState, kb)
	shiftEffective := ls || rs
	chosen := f.NoShift
	if cap != shiftEffective {
		chosen = f.Shift
	}
	return sendHalfInverted(chosen, ev, ls, rs, cap, kb)
}

func modifierSnapshot(keyState []bool, kb Keyboard) (leftShift, rightShift, capsLock bool) {
	return keyState[kb.LeftShiftCode()], keyState[kb.RightShiftCode()], keyState[kb.CapsLockCode()]
}

// sendHalfInverted implements the send-half routine shared by Half and
// Full rich keys: it optionally brackets the mapped key with a synthetic
// shift-modifier toggle and a synchronisation boundary so that
// downstream observers see a shift state consistent with the emitted
// key, not with the physical shift the user is actually holding.
func sendHalfInverted(h HalfInvertedKey, ev Event, ls, rs, cap bool, kb Keyboard) error {
	inv := h.InvertShift
	if cap && h.CapsLockNoModify {
		inv = !inv
	}

	if ev.Value == Down && inv {
		code, upNotDown := pressShiftEvent(ls, rs, kb)
		if err := kb.SendModCodeValue(code, upNotDown, ev); err != nil {
			return err
		}
		if err := kb.Synchronize(); err != nil {
			return err
		}
	}

	if ev.Value == Up && inv {
		if err := kb.Synchronize(); err != nil {
			return err
		}
	}

	if err := kb.SendModCode(h.Code, ev); err != nil {
		return err
	}

	if ev.Value == Up && inv {
		code, upNotDown := releaseShiftEvent(ls, rs, kb)
		if err := kb.SendModCodeValue(code, upNotDown, ev); err != nil {
			return err
		}
	}

	return nil
}

// pressShiftEvent picks the synthetic shift event emitted before an
// inverted Down: release whichever physical shift is held, or press
// LeftShift if neither is.
func pressShiftEvent(ls, rs bool, kb Keyboard) (code keycode.Code, upNotDown bool) {
	switch {
	case ls:
		return kb.LeftShiftCode(), true
	case rs:
		return kb.RightShiftCode(), true
	default:
		return kb.LeftShiftCode(), false
	}
}

// releaseShiftEvent picks the complementary restoration emitted after an
// inverted Up, undoing pressShiftEvent.
func releaseShiftEvent(ls, rs bool, kb Keyboard) (code keycode.Code, upNotDown bool) {
	switch {
	case ls:
		return kb.LeftShiftCode(), false
	case rs:
		return kb.RightShiftCode(), false
	default:
		return kb.LeftShiftCode(), true
	}
}
