package engine

import "github.com/uplg/kbremap/internal/keycode"

// Layout dispatches one incoming event once the engine has already
// settled on which layout is current. Layout 0 is always identityLayout;
// layouts parsed from a layout string with no flagged or split tokens
// are a simpleLayout, everything else a richLayout.
type Layout interface {
	sendEvent(keyState []bool, ev Event, kb Keyboard) error
}

// identityLayout is layout 0: it ignores the code entirely and forwards
// every event untransformed. Layout 0 is always the identity/base
// mapping; every other layout maps relative to it.
type identityLayout struct{}

func (identityLayout) sendEvent(_ []bool, ev Event, kb Keyboard) error {
	return kb.Send(ev)
}

// simpleLayout is a dense code→code remap, initialised to identity and
// overwritten only where a layout differs from the base.
type simpleLayout struct {
	table [keycode.Max]keycode.Code
}

func newSimpleLayout() *simpleLayout {
	l := &simpleLayout{}
	for i := range l.table {
		l.table[i] = keycode.Code(i)
	}
	return l
}

func (l *simpleLayout) set(from, to keycode.Code) {
	l.table[from] = to
}

func (l *simpleLayout) sendEvent(_ []bool, ev Event, kb Keyboard) error {
	if int(ev.Code) >= keycode.Max {
		return kb.Send(ev)
	}
	newCode := l.table[ev.Code]
	if newCode == ev.Code {
		return kb.Send(ev)
	}
	return kb.SendModCode(newCode, ev)
}

// richLayout is a dense code→richKey remap whose slots start out nil
// (forwarded untransformed, like noopKey) and are overwritten only where
// a rich mapping is required.
type richLayout struct {
	table [keycode.Max]richKey
}

func newRichLayout() *richLayout {
	return &richLayout{}
}

func (l *richLayout) set(from keycode.Code, key richKey) {
	l.table[from] = key
}

func (l *richLayout) sendEvent(keyState []bool, ev Event, kb Keyboard) error {
	if int(ev.Code) >= keycode.Max {
		return kb.Send(ev)
	}
	entry := l.table[ev.Code]
	if entry == nil {
		return kb.Send(ev)
	}
	return entry.sendEvent(keyState, ev, kb)
}
