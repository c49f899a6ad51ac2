package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayoutsRejectsSingleLayout(t *testing.T) {
	_, err := ParseLayouts([]string{"Q,W,E"})
	assert.Error(t, err)
}

func TestParseLayoutsUnknownKey(t *testing.T) {
	_, err := ParseLayouts([]string{"Q,W,E", "Q,W,BOGUS"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKey))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "BOGUS", pe.Token)
}

func TestParseLayoutsBadSplit(t *testing.T) {
	_, err := ParseLayouts([]string{"Q,W,E", "Q:W:E,W,E"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadSplit))
}

func TestParseLayoutsLengthMismatch(t *testing.T) {
	_, err := ParseLayouts([]string{"Q,W", "Q,W,E"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestParseLayoutsShorterMappedLayoutIsAllowed(t *testing.T) {
	layouts, err := ParseLayouts([]string{"Q,W,E", "W"})
	require.NoError(t, err)
	assert.Len(t, layouts, 2)
}

func TestParseLayoutsSimpleVsRichSelection(t *testing.T) {
	layouts, err := ParseLayouts([]string{"Q,W,E", "W,Q,E"})
	require.NoError(t, err)
	_, simple := layouts[1].(*simpleLayout)
	assert.True(t, simple, "a layout with no flagged or split tokens should be stored as simpleLayout")

	layouts, err = ParseLayouts([]string{"Q,W,E", "W,^Q,E"})
	require.NoError(t, err)
	_, rich := layouts[1].(*richLayout)
	assert.True(t, rich, "a layout with any flagged token should be stored as richLayout in full")
}

func TestParseRichTokenSplitFlipsShiftOnSecondHalf(t *testing.T) {
	key, err := parseRichToken("Q:^W")
	require.NoError(t, err)
	full, ok := key.(fullKey)
	require.True(t, ok)
	assert.False(t, full.NoShift.InvertShift)
	assert.False(t, full.Shift.InvertShift)

	key, err = parseRichToken("^Q:W")
	require.NoError(t, err)
	full, ok = key.(fullKey)
	require.True(t, ok)
	assert.True(t, full.NoShift.InvertShift)
	assert.True(t, full.Shift.InvertShift)
}

func TestParseHalfInvertedFlags(t *testing.T) {
	h, err := parseHalfInverted("*^Q")
	require.NoError(t, err)
	assert.True(t, h.InvertShift)
	assert.True(t, h.CapsLockNoModify)
	assert.Equal(t, mustCode(t, "Q"), h.Code)
}

func TestParseKeyNameTrimsFlagsAndWhitespace(t *testing.T) {
	code, err := parseKeyName(" *^Q ")
	require.NoError(t, err)
	assert.Equal(t, mustCode(t, "Q"), code)
}
