package engine

import (
	"fmt"

	"github.com/uplg/kbremap/internal/keycode"
)

// Engine is the keymap state machine. It owns the key-state bitmap, the
// configured layouts, and the layer-switch and revert bookkeeping. An
// Engine is not safe for concurrent use from multiple goroutines: callers
// that read from more than one device must fan all events into a single
// goroutine that owns the Engine.
type Engine struct {
	layouts           []Layout
	layoutSwitchKeys  []keycode.Code
	layoutIndexKeys   map[keycode.Code]int
	revertKeys        map[keycode.Code]struct{}
	revertLayoutIndex int

	keyState           [keycode.Max]bool
	chosenLayoutIndex  int
	currentLayoutIndex int
}

// Config bundles the construction-time parameters of an Engine, mirroring
// the configuration file's fields once key names have been resolved to
// codes.
type Config struct {
	Layouts            []Layout
	LayoutSwitchKeys   []keycode.Code
	LayoutIndexKeys    map[keycode.Code]int
	RevertKeys         []keycode.Code
	RevertLayoutIndex  int
	DefaultLayoutIndex int
}

// New validates cfg's layout count and indices and constructs an Engine.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Layouts) < 2 {
		return nil, fmt.Errorf("engine: need at least 2 layouts, got %d", len(cfg.Layouts))
	}
	if cfg.RevertLayoutIndex < 0 || cfg.RevertLayoutIndex >= len(cfg.Layouts) {
		return nil, fmt.Errorf("engine: revert layout index %d out of range [0,%d)", cfg.RevertLayoutIndex, len(cfg.Layouts))
	}
	if cfg.DefaultLayoutIndex < 0 || cfg.DefaultLayoutIndex >= len(cfg.Layouts) {
		return nil, fmt.Errorf("engine: default layout index %d out of range [0,%d)", cfg.DefaultLayoutIndex, len(cfg.Layouts))
	}

	revertKeys := make(map[keycode.Code]struct{}, len(cfg.RevertKeys))
	for _, c := range cfg.RevertKeys {
		revertKeys[c] = struct{}{}
	}

	layoutIndexKeys := cfg.LayoutIndexKeys
	if layoutIndexKeys == nil {
		layoutIndexKeys = map[keycode.Code]int{}
	}

	return &Engine{
		layouts:            cfg.Layouts,
		layoutSwitchKeys:   cfg.LayoutSwitchKeys,
		layoutIndexKeys:    layoutIndexKeys,
		revertKeys:         revertKeys,
		revertLayoutIndex:  cfg.RevertLayoutIndex,
		chosenLayoutIndex:  cfg.DefaultLayoutIndex,
		currentLayoutIndex: cfg.DefaultLayoutIndex,
	}, nil
}

// ChosenLayoutIndex reports the layout the user has selected via the
// switch chord.
func (e *Engine) ChosenLayoutIndex() int { return e.chosenLayoutIndex }

// CurrentLayoutIndex reports the layout in effect for the next event.
func (e *Engine) CurrentLayoutIndex() int { return e.currentLayoutIndex }

// SendEvent transforms one incoming event into zero or more injected
// events on kb, running the bounds check, state update, layer-switch
// detection, revert handling, and mapping dispatch in that order.
func (e *Engine) SendEvent(ev Event, kb Keyboard) error {
	capsLockCode := kb.CapsLockCode()

	// Step 1: bounds bypass. Protects the state array from an
	// out-of-range index.
	if ev.Value != Other && int(ev.Code) >= keycode.Max && ev.Code != capsLockCode {
		return kb.Send(ev)
	}

	if ev.Value != Other {
		// Step 2: state update.
		if ev.Code == capsLockCode {
			if ev.Value == Down {
				e.keyState[capsLockCode] = !e.keyState[capsLockCode]
			}
		} else {
			e.keyState[ev.Code] = ev.Value == Down
		}

		// Step 3: layer-switch chord detection, evaluated after the
		// state update above so the just-pressed chord member is
		// already reflected in keyState.
		if e.switchChordHeld() {
			if idx, ok := e.layoutIndexKeys[ev.Code]; ok {
				e.chosenLayoutIndex = idx
				e.currentLayoutIndex = idx
				return kb.BlockKey()
			}
		}

		// Step 4: revert-modifier handling.
		if _, isRevert := e.revertKeys[ev.Code]; isRevert {
			switch ev.Value {
			case Down:
				e.currentLayoutIndex = e.revertLayoutIndex
				// Falls through to step 5: the revert key's own
				// press is still mapped and emitted, now through
				// the revert layout.
			case Up:
				return e.releaseRevert(ev, kb)
			}
		}
	}

	// Step 5: mapping.
	return e.layouts[e.currentLayoutIndex].sendEvent(e.keyState[:], ev, kb)
}

func (e *Engine) switchChordHeld() bool {
	for _, c := range e.layoutSwitchKeys {
		if !e.keyState[c] {
			return false
		}
	}
	return true
}

// releaseRevert implements the Up branch of step 4: it restores the
// chosen layout, then repairs any keys left logically stuck down under
// the revert (base) layout by releasing them before releasing the
// revert key itself. Without this pass, a key pressed while the revert
// modifier was held would never see its Up event mapped through the
// layout that was active when it went down.
func (e *Engine) releaseRevert(ev Event, kb Keyboard) error {
	e.currentLayoutIndex = e.chosenLayoutIndex

	origCode := ev.Code
	for code := 0; code < keycode.Max; code++ {
		c := keycode.Code(code)
		if c == origCode {
			continue
		}
		if e.keyState[c] {
			if err := kb.SendModCodeValue(c, true, ev); err != nil {
				return err
			}
			e.keyState[c] = false
		}
	}

	return kb.SendModCodeValue(origCode, true, ev)
}
