package engine

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the layout-string parser. The parser wraps
// them in a *ParseError carrying the offending token, so callers can
// classify with errors.Is while still seeing the token in the message.
var (
	ErrUnknownKey     = errors.New("unknown key name")
	ErrBadSplit       = errors.New("half-key token must split into exactly two halves")
	ErrLengthMismatch = errors.New("layout has more tokens than the base layout")
)

// ParseError carries the token or name that a layout-string parse
// failure occurred on, alongside the sentinel kind it wraps.
type ParseError struct {
	Kind  error
	Token string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", e.Kind, e.Token)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}
