// Command kbremap grabs one or more keyboards and remaps their keys
// according to a configured layout, injecting the result through a
// virtual uinput device.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/uplg/kbremap/internal/config"
	"github.com/uplg/kbremap/internal/driver"
	"github.com/uplg/kbremap/internal/engine"
	"github.com/uplg/kbremap/internal/keycode"
	"github.com/uplg/kbremap/internal/platform/linux"
)

// version is overwritten at build time via -ldflags.
var version = "dev"

var bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "kbremap [device-path ...]",
		Short:   "Remap keyboard input using a configurable layout",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, args)
		},
	}
	cmd.SetVersionTemplate(bannerStyle.Render("kbremap") + " {{.Version}}\n")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to keymap.toml (searches standard locations if unset)")

	// cobra's automatic --version flag has no shorthand by default, but
	// this command wants -v too, so register the flag ourselves before
	// cobra's own InitDefaultVersionFlag sees the name is already taken.
	cmd.Flags().BoolP("version", "v", false, "version for kbremap")

	return cmd
}

func run(parent context.Context, configPath string, devicePaths []string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	cfg, hadSkipKey, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	writer, err := linux.NewWriter("kbremap virtual keyboard")
	if err != nil {
		return fmt.Errorf("creating virtual keyboard: %w", err)
	}
	defer writer.Close()

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d := driver.New(eng, writer, cfg.DeviceMatchers(hadSkipKey), logger)
	logger.Info("starting", "version", version, "devices", devicePaths)
	return d.Run(ctx, devicePaths)
}

// buildEngine resolves the configured key names to codes and constructs
// the engine.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	layouts, err := engine.ParseLayouts(cfg.Keymaps)
	if err != nil {
		return nil, fmt.Errorf("parsing keymaps: %w", err)
	}

	switchKeys, err := resolveCodes(cfg.SwitchLayoutKeys)
	if err != nil {
		return nil, err
	}

	revertCodes, err := resolveCodes(cfg.RevertKeys())
	if err != nil {
		return nil, err
	}

	layoutIndexKeys := make(map[keycode.Code]int, len(cfg.Keymaps))
	for i := range cfg.Keymaps {
		name := fmt.Sprintf("%d", i)
		code, ok := keycode.Lookup(name)
		if !ok {
			continue
		}
		layoutIndexKeys[code] = i
	}

	return engine.New(engine.Config{
		Layouts:            layouts,
		LayoutSwitchKeys:   switchKeys,
		LayoutIndexKeys:    layoutIndexKeys,
		RevertKeys:         revertCodes,
		RevertLayoutIndex:  cfg.RevertKeymapIndex,
		DefaultLayoutIndex: cfg.DefaultKeymapIndex,
	})
}

func resolveCodes(names []string) ([]keycode.Code, error) {
	codes := make([]keycode.Code, 0, len(names))
	for _, name := range names {
		code, ok := keycode.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown key name %q: %w", name, engine.ErrUnknownKey)
		}
		codes = append(codes, code)
	}
	return codes, nil
}
