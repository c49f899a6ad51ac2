// Package config loads and validates the TOML keymap configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/uplg/kbremap/internal/engine"
)

// DeviceMatcher mirrors engine.DeviceMatcher with mapstructure tags so
// viper can decode it straight out of a TOML table.
type DeviceMatcher struct {
	Bustype *uint16 `mapstructure:"bustype"`
	Vendor  *uint16 `mapstructure:"vendor"`
	Product *uint16 `mapstructure:"product"`
	Version *uint16 `mapstructure:"version"`
}

func (m DeviceMatcher) toEngine() engine.DeviceMatcher {
	return engine.DeviceMatcher{
		Bustype: m.Bustype,
		Vendor:  m.Vendor,
		Product: m.Product,
		Version: m.Version,
	}
}

// Devices holds the grab/skip device-matching policy. A nil Skip field
// (the TOML key omitted entirely) falls back to engine.DefaultSkip; an
// explicitly empty list overrides the default instead of merging with
// it.
type Devices struct {
	Grab []DeviceMatcher `mapstructure:"grab"`
	Skip []DeviceMatcher `mapstructure:"skip"`
}

// Config is the decoded shape of keymap.toml.
type Config struct {
	SwitchLayoutKeys   []string `mapstructure:"switch_layout_keys"`
	RevertDefaultKey   string   `mapstructure:"revert_default_key"`
	RevertDefaultKeys  []string `mapstructure:"revert_default_keys"`
	RevertKeymapIndex  int      `mapstructure:"revert_keymap_index"`
	DefaultKeymapIndex int      `mapstructure:"default_keymap_index"`
	Keymaps            []string `mapstructure:"keymaps"`
	Devices            Devices  `mapstructure:"devices"`
}

// RevertKeys merges the legacy singular field and the plural field into
// one de-duplicated list of key names.
func (c *Config) RevertKeys() []string {
	seen := make(map[string]struct{}, len(c.RevertDefaultKeys)+1)
	var out []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	add(c.RevertDefaultKey)
	for _, name := range c.RevertDefaultKeys {
		add(name)
	}
	return out
}

// DeviceMatchers translates the decoded Devices policy into the engine's
// matcher type, applying the default Yubico skip rule when the devices
// table (or its skip key) was never present in the document.
func (c *Config) DeviceMatchers(hadSkipKey bool) engine.DeviceMatchers {
	grab := make([]engine.DeviceMatcher, len(c.Devices.Grab))
	for i, m := range c.Devices.Grab {
		grab[i] = m.toEngine()
	}

	if !hadSkipKey {
		return engine.DeviceMatchers{Grab: grab, Skip: engine.DefaultSkip()}
	}

	skip := make([]engine.DeviceMatcher, len(c.Devices.Skip))
	for i, m := range c.Devices.Skip {
		skip[i] = m.toEngine()
	}
	return engine.DeviceMatchers{Grab: grab, Skip: skip}
}

// Load reads explicitPath when it is set, and only that file. Otherwise
// it searches, in order, /etc/kbremap/keymap.toml,
// $HOME/.config/kbremap/keymap.toml (honouring SUDO_USER when running
// under sudo, as the reference configuration loader did), and
// ./keymap.toml, and reads the first one that exists; a parse error in
// that file is returned rather than moving on to the next. hadSkipKey reports
// whether the loaded document defined devices.skip explicitly, so
// DeviceMatchers can decide whether the default applies.
func Load(explicitPath string) (cfg *Config, hadSkipKey bool, err error) {
	v := viper.New()
	v.SetConfigType("toml")

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("keymap")
		v.AddConfigPath("/etc/kbremap")
		if home, herr := configHome(); herr == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, false, fmt.Errorf("loading config: %w", err)
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, false, fmt.Errorf("parsing config %s: %w", v.ConfigFileUsed(), err)
	}

	if len(cfg.Keymaps) < 2 {
		return nil, false, fmt.Errorf("config %s: keymaps must have at least 2 entries, got %d", v.ConfigFileUsed(), len(cfg.Keymaps))
	}

	return cfg, v.IsSet("devices.skip"), nil
}

// configHome resolves the invoking user's config directory, preferring
// SUDO_USER's home over the effective (root) user's when running under
// sudo, matching the reference loader's behaviour.
func configHome() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		return filepath.Join("/home", sudoUser, ".config", "kbremap"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kbremap"), nil
}
