package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	path     string
	defaults Config
	updates  chan Config
	errs     chan error
}

// NewWatcher watches path and decodes it over defaults on each change.
func NewWatcher(path string, defaults Config) *Watcher {
	return &Watcher{
		path:     path,
		defaults: defaults,
		updates:  make(chan Config, 1),
		errs:     make(chan error, 1),
	}
}

// Updates delivers each successfully reloaded config. Only the newest pending value is kept.
func (w *Watcher) Updates() <-chan Config {
	return w.updates
}

// Errors delivers reload and watch failures.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Start watches the config directory until ctx is done. Editors that replace
// files by rename are handled by watching the parent instead of the file.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := EnsureConfigDir(w.path); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	target := filepath.Clean(w.path)

	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(w.path, w.defaults)
				if err != nil {
					w.sendErr(err)
					continue
				}
				w.send(cfg)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.sendErr(fmt.Errorf("watch config: %w", err))
			}
		}
	}()
	return nil
}

func (w *Watcher) send(cfg Config) {
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- cfg:
	default:
	}
}

func (w *Watcher) sendErr(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
