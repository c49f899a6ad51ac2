// Package keycode defines the platform-integer key identifier the keymap
// engine and its layout tables are built around, and the name table used to
// translate the key names written in configuration files into codes.
package keycode

import "fmt"

// Code identifies a physical key using the Linux evdev numbering space.
type Code uint16

// Max is one past the highest evdev key constant this package names
// (KEY_MICMUTE = 248). Codes at or above Max bypass the keymap engine's
// array-indexed state and dispatch entirely; see internal/engine.
const Max = 249

// String renders the code using its canonical evdev name when known, or a
// numeric fallback otherwise.
func (c Code) String() string {
	if name, ok := CodeToName[c]; ok {
		return name
	}
	return fmt.Sprintf("KEY_%d", uint16(c))
}

// Lookup resolves a configuration key name to its Code. Names are
// case-sensitive and matched exactly as written in NameToCode.
func Lookup(name string) (Code, bool) {
	c, ok := NameToCode[name]
	return c, ok
}
