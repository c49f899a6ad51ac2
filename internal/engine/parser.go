package engine

import (
	"fmt"
	"strings"

	"github.com/uplg/kbremap/internal/keycode"
)

const (
	invertShiftFlag  = '^'
	capsModifyFlag   = '*'
	halfKeySeparator = ':'
)

// ParseLayouts parses the keymaps list from a configuration file into
// the ordered Layout sequence the engine needs. layoutStrings[0]
// is the base layout and must contain only plain key names; it is used
// to translate every subsequent layout's positional tokens back into
// codes. The returned slice mirrors layoutStrings 1:1, including layout
// 0 as the identity layout.
func ParseLayouts(layoutStrings []string) ([]Layout, error) {
	if len(layoutStrings) < 2 {
		return nil, fmt.Errorf("keymaps: need at least a base layout and one mapped layout, got %d", len(layoutStrings))
	}

	baseCodes, err := parseBaseLayout(layoutStrings[0])
	if err != nil {
		return nil, err
	}

	layouts := make([]Layout, len(layoutStrings))
	layouts[0] = identityLayout{}

	for i := 1; i < len(layoutStrings); i++ {
		tokens := splitTokens(layoutStrings[i])
		if len(tokens) > len(baseCodes) {
			return nil, &ParseError{Kind: ErrLengthMismatch, Token: layoutStrings[i]}
		}

		if needsRich(tokens) {
			layout := newRichLayout()
			for k, tok := range tokens {
				key, err := parseRichToken(tok)
				if err != nil {
					return nil, err
				}
				layout.set(baseCodes[k], key)
			}
			layouts[i] = layout
			continue
		}

		layout := newSimpleLayout()
		for k, tok := range tokens {
			code, err := parseKeyName(tok)
			if err != nil {
				return nil, err
			}
			layout.set(baseCodes[k], code)
		}
		layouts[i] = layout
	}

	return layouts, nil
}

func parseBaseLayout(s string) ([]keycode.Code, error) {
	tokens := splitTokens(s)
	codes := make([]keycode.Code, len(tokens))
	for i, tok := range tokens {
		code, err := parseKeyName(tok)
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

func splitTokens(s string) []string {
	raw := strings.Split(s, ",")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		tokens[i] = strings.TrimSpace(t)
	}
	return tokens
}

// needsRich reports whether any token in a layout carries half-key or
// split syntax, which forces the whole layout to be stored as a Rich
// table rather than a Simple one.
func needsRich(tokens []string) bool {
	for _, tok := range tokens {
		if strings.ContainsRune(tok, halfKeySeparator) ||
			strings.ContainsRune(tok, invertShiftFlag) ||
			strings.ContainsRune(tok, capsModifyFlag) {
			return true
		}
	}
	return false
}

func parseRichToken(token string) (richKey, error) {
	if strings.ContainsRune(token, halfKeySeparator) {
		halves := strings.Split(token, string(halfKeySeparator))
		if len(halves) != 2 {
			return nil, &ParseError{Kind: ErrBadSplit, Token: token}
		}
		lhs, err := parseHalfInverted(halves[0])
		if err != nil {
			return nil, err
		}
		rhs, err := parseHalfInverted(halves[1])
		if err != nil {
			return nil, err
		}
		rhs.InvertShift = !rhs.InvertShift
		return fullKey{NoShift: lhs, Shift: rhs}, nil
	}

	if strings.ContainsRune(token, invertShiftFlag) || strings.ContainsRune(token, capsModifyFlag) {
		h, err := parseHalfInverted(token)
		if err != nil {
			return nil, err
		}
		return halfKey{Half: h}, nil
	}

	code, err := parseKeyName(token)
	if err != nil {
		return nil, err
	}
	return directKey{Code: code}, nil
}

func parseHalfInverted(token string) (HalfInvertedKey, error) {
	code, err := parseKeyName(token)
	if err != nil {
		return HalfInvertedKey{}, err
	}
	return HalfInvertedKey{
		Code:             code,
		InvertShift:      strings.ContainsRune(token, invertShiftFlag),
		CapsLockNoModify: strings.ContainsRune(token, capsModifyFlag),
	}, nil
}

// parseKeyName strips the flag characters and surrounding whitespace
// from a token to recover the bare key name, then looks it up.
func parseKeyName(token string) (keycode.Code, error) {
	name := strings.TrimFunc(token, func(r rune) bool {
		return r == invertShiftFlag || r == capsModifyFlag || r == ' ' || r == '\t'
	})
	code, ok := keycode.Lookup(name)
	if !ok {
		return 0, &ParseError{Kind: ErrUnknownKey, Token: token}
	}
	return code, nil
}
