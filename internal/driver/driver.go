// Package driver wires the Linux evdev/uinput backend to the engine: it
// discovers and grabs keyboards, fans their events into a single
// consumer goroutine that owns the engine, and watches for hot-plugged
// devices.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/uplg/kbremap/internal/engine"
	"github.com/uplg/kbremap/internal/platform/linux"
)

// inputDeviceGlob is where Linux exposes evdev device nodes.
const inputDeviceGlob = "/dev/input/event*"

// Driver owns the shared Engine and uinput Writer and coordinates one
// reader goroutine per grabbed device plus the single consumer
// goroutine that actually calls into the engine.
type Driver struct {
	eng      *engine.Engine
	kb       *linux.Writer
	matchers engine.DeviceMatchers
	logger   *log.Logger

	events chan engine.Event

	mu      sync.Mutex
	readers map[string]*linux.Reader
}

// New constructs a Driver. kb is shared by the consumer goroutine only;
// no other goroutine may call into it.
func New(eng *engine.Engine, kb *linux.Writer, matchers engine.DeviceMatchers, logger *log.Logger) *Driver {
	return &Driver{
		eng:      eng,
		kb:       kb,
		matchers: matchers,
		logger:   logger,
		events:   make(chan engine.Event, 64),
		readers:  make(map[string]*linux.Reader),
	}
}

// Run grabs the requested devices (or auto-discovers them when
// explicitPaths is empty), starts the consumer, and blocks until ctx is
// cancelled or the exit condition below is reached: when explicitPaths
// was non-empty and every such device has since closed, Run returns;
// when auto-discovering, the hot-plug watch keeps the process alive
// even with zero devices currently grabbed.
func (d *Driver) Run(ctx context.Context, explicitPaths []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.consume(ctx)
	}()

	explicit := len(explicitPaths) > 0

	var readerWG sync.WaitGroup
	done := make(chan struct{})

	startReader := func(r *linux.Reader) {
		if err := d.registerReader(r); err != nil {
			d.logger.Warn("cannot start reader", "path", r.Path(), "error", err)
			r.Close()
			return
		}
		readerWG.Add(1)
		go func() {
			defer readerWG.Done()
			d.runReader(ctx, r)
			d.unregisterReader(r)
		}()
	}

	if explicit {
		for _, path := range explicitPaths {
			r, err := linux.OpenReader(path)
			if err != nil {
				cancel()
				return fmt.Errorf("opening %s: %w", path, err)
			}
			if err := r.Grab(); err != nil {
				cancel()
				return err
			}
			startReader(r)
		}
		go func() {
			readerWG.Wait()
			close(done)
		}()
	} else {
		found, err := d.discover()
		if err != nil {
			cancel()
			return err
		}
		for _, r := range found {
			startReader(r)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			cancel()
			return fmt.Errorf("creating hot-plug watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(inputDeviceGlob)); err != nil {
			cancel()
			return fmt.Errorf("watching %s: %w", filepath.Dir(inputDeviceGlob), err)
		}
		go d.watchHotplug(ctx, watcher, startReader)
	}

	select {
	case <-ctx.Done():
		readerWG.Wait()
		wg.Wait()
		return nil
	case <-done:
		cancel()
		wg.Wait()
		return nil
	}
}

// discover globs every evdev node, opens and keyboard-probes each, and
// keeps the ones engine.DeviceMatchers says to grab.
func (d *Driver) discover() ([]*linux.Reader, error) {
	matches, err := filepath.Glob(inputDeviceGlob)
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", inputDeviceGlob, err)
	}

	var readers []*linux.Reader
	for _, path := range matches {
		r, err := linux.OpenReader(path)
		if err != nil {
			if errors.Is(err, linux.ErrNotAKeyboard) {
				d.logger.Debug("skipping non-keyboard device", "path", path)
				continue
			}
			d.logger.Warn("cannot open candidate device", "path", path, "error", err)
			continue
		}

		id, err := r.DeviceID()
		if err != nil {
			d.logger.Warn("cannot read device id", "path", path, "error", err)
			r.Close()
			continue
		}
		if !d.matchers.ShouldGrab(id) {
			d.logger.Debug("skipping device excluded by matcher policy", "path", path, "name", r.Name())
			r.Close()
			continue
		}
		if err := r.Grab(); err != nil {
			d.logger.Warn("cannot grab device", "path", path, "error", err)
			r.Close()
			continue
		}

		d.logger.Info("grabbed keyboard", "path", path, "name", r.Name())
		readers = append(readers, r)
	}
	return readers, nil
}

// watchHotplug watches /dev/input for newly created event nodes and
// hands each new keyboard to startReader.
func (d *Driver) watchHotplug(ctx context.Context, watcher *fsnotify.Watcher, startReader func(*linux.Reader)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			d.tryGrabHotplugged(ev.Name, startReader)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("hot-plug watcher error", "error", err)
		}
	}
}

func (d *Driver) tryGrabHotplugged(path string, startReader func(*linux.Reader)) {
	r, err := linux.OpenReader(path)
	if err != nil {
		if !errors.Is(err, linux.ErrNotAKeyboard) {
			d.logger.Debug("hot-plug candidate unusable", "path", path, "error", err)
		}
		return
	}
	id, err := r.DeviceID()
	if err != nil || !d.matchers.ShouldGrab(id) {
		r.Close()
		return
	}
	if err := r.Grab(); err != nil {
		d.logger.Warn("cannot grab hot-plugged device", "path", path, "error", err)
		r.Close()
		return
	}
	d.logger.Info("grabbed hot-plugged keyboard", "path", path, "name", r.Name())
	startReader(r)
}

// registerReader records r as actively grabbed. It rejects a second
// registration for the same device path rather than silently replacing
// the existing entry, since the two readers would otherwise race over
// the same fd's lifetime.
func (d *Driver) registerReader(r *linux.Reader) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.readers[r.Path()]; exists {
		return fmt.Errorf("registering %s: %w", r.Path(), linux.ErrAlreadyRegistered)
	}
	d.readers[r.Path()] = r
	return nil
}

func (d *Driver) unregisterReader(r *linux.Reader) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.readers, r.Path())
}

// runReader reads events from r until it errors or ctx is cancelled,
// forwarding EV_KEY events onto the shared channel.
func (d *Driver) runReader(ctx context.Context, r *linux.Reader) {
	defer r.Close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, ok, err := r.ReadEvent()
		if err != nil {
			d.logger.Info("device disconnected", "path", r.Path(), "error", err)
			return
		}
		if !ok {
			continue
		}

		select {
		case d.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// consume is the single goroutine allowed to call into the engine and
// the uinput writer, so neither needs its own locking.
func (d *Driver) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			if err := d.eng.SendEvent(ev, d.kb); err != nil {
				d.logger.Error("injecting event failed", "code", ev.Code, "error", err)
			}
		}
	}
}
