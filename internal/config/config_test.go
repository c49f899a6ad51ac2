package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
switch_layout_keys = ["LSFT", "RSFT"]
revert_default_key = "LCTL"
revert_default_keys = ["RCTL", "LCTL"]
revert_keymap_index = 0
default_keymap_index = 1
keymaps = [
  "Q,W,E,R,T,Y,U,I,O,P",
  "Q,COMM,DOT,P,Y,F,G,C,R,L",
]

[devices]
skip = [{ vendor = 4176 }]
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "keymap.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDecodesKnownFields(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleTOML)

	cfg, hadSkipKey, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"LSFT", "RSFT"}, cfg.SwitchLayoutKeys)
	assert.Equal(t, 0, cfg.RevertKeymapIndex)
	assert.Equal(t, 1, cfg.DefaultKeymapIndex)
	assert.Len(t, cfg.Keymaps, 2)
	assert.True(t, hadSkipKey)
	require.Len(t, cfg.Devices.Skip, 1)
	require.NotNil(t, cfg.Devices.Skip[0].Vendor)
	assert.Equal(t, uint16(4176), *cfg.Devices.Skip[0].Vendor)
}

func TestRevertKeysMergesAndDeduplicatesLegacyAndPluralFields(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleTOML)

	cfg, _, err := Load(path)
	require.NoError(t, err)

	// LCTL appears both as the legacy singular field and inside the
	// plural list; it must appear exactly once in the merged result.
	assert.Equal(t, []string{"LCTL", "RCTL"}, cfg.RevertKeys())
}

func TestLoadRejectsFewerThanTwoKeymaps(t *testing.T) {
	const body = `
keymaps = ["Q,W,E"]
`
	path := writeConfig(t, t.TempDir(), body)

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestDeviceMatchersFallsBackToDefaultSkipWhenKeyAbsent(t *testing.T) {
	const body = `
keymaps = ["Q,W,E", "W,Q,E"]
`
	path := writeConfig(t, t.TempDir(), body)

	cfg, hadSkipKey, err := Load(path)
	require.NoError(t, err)
	assert.False(t, hadSkipKey)

	matchers := cfg.DeviceMatchers(hadSkipKey)
	require.Len(t, matchers.Skip, 1)
}

func TestDeviceMatchersHonoursExplicitEmptySkipList(t *testing.T) {
	const body = `
keymaps = ["Q,W,E", "W,Q,E"]

[devices]
skip = []
`
	path := writeConfig(t, t.TempDir(), body)

	cfg, hadSkipKey, err := Load(path)
	require.NoError(t, err)
	assert.True(t, hadSkipKey)

	matchers := cfg.DeviceMatchers(hadSkipKey)
	assert.Empty(t, matchers.Skip)
}
