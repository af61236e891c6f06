package tui

import (
	"time"

	"github.com/evanschultz/trackit/internal/notify"
)

// RuntimeConfig holds settings that may change while the TUI runs.
type RuntimeConfig struct {
	UpcomingDays int
	ShowArchived bool
}

// Option configures a Model.
type Option func(*Model)

// DefaultRuntimeConfig returns the runtime defaults.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{UpcomingDays: 7}
}

// WithRuntimeConfig applies runtime settings.
func WithRuntimeConfig(cfg RuntimeConfig) Option {
	return func(m *Model) {
		if cfg.UpcomingDays <= 0 {
			cfg.UpcomingDays = DefaultRuntimeConfig().UpcomingDays
		}
		m.config = cfg
	}
}

// WithReloadConfigCallback sets the callback behind the reload-config key.
func WithReloadConfigCallback(fn func() (RuntimeConfig, error)) Option {
	return func(m *Model) {
		m.reloadConfig = fn
	}
}

// WithConfigUpdates streams runtime config changes pushed by a file watcher.
func WithConfigUpdates(ch <-chan RuntimeConfig) Option {
	return func(m *Model) {
		m.configUpdates = ch
	}
}

// WithNotifications streams store notifications into the status line.
func WithNotifications(ch <-chan notify.Notification) Option {
	return func(m *Model) {
		m.notifications = ch
	}
}

// WithClipboard overrides the clipboard writer used by yank.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.writeClipboard = write
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}
