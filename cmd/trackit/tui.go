package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evanschultz/trackit/internal/config"
	"github.com/evanschultz/trackit/internal/events"
	"github.com/evanschultz/trackit/internal/tui"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard (default when no command is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()
	rt, cleanup, err := openRuntime(ctx, opts, modeTUI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()

	return rt.flow("tui", func() error {
		if _, err := rt.requireSession(ctx); err != nil {
			return err
		}
		tuiCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		m := tui.NewModel(
			tui.Services{Tasks: rt.tasks, Habits: rt.habits, Dashboard: rt.dashboard},
			tui.WithRuntimeConfig(toTUIRuntimeConfig(rt.cfg)),
			tui.WithReloadConfigCallback(rt.reloadTUIConfig),
			tui.WithConfigUpdates(rt.watchTUIConfig(tuiCtx)),
			tui.WithNotifications(rt.notices.C()),
		)
		p := programFactory(m)
		stop := rt.forwardDataChanges(p)
		defer stop()

		rt.logger.Info("starting tui program loop")
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

// forwardDataChanges tells the program about every task or habit store change,
// refetches included. The returned func unsubscribes.
func (rt *cliRuntime) forwardDataChanges(p program) func() {
	return rt.dashboard.Watch(rt.bus, func(e events.Event) {
		p.Send(tui.DataChangedMsg{Topic: e.Topic})
	})
}

// reloadTUIConfig rereads the config file on demand.
func (rt *cliRuntime) reloadTUIConfig() (tui.RuntimeConfig, error) {
	rt.logger.Info("runtime config reload requested", "config_path", rt.settings.configPath)
	cfg, err := rt.settings.load(rt.opts)
	if err != nil {
		rt.logger.Error("runtime config reload failed", "config_path", rt.settings.configPath, "err", err)
		return tui.RuntimeConfig{}, err
	}
	rt.logger.Info("runtime config reload complete", "config_path", rt.settings.configPath)
	return toTUIRuntimeConfig(cfg), nil
}

// watchTUIConfig streams runtime config changes from disk until ctx is done.
// A nil channel disables live reload.
func (rt *cliRuntime) watchTUIConfig(ctx context.Context) <-chan tui.RuntimeConfig {
	w := config.NewWatcher(rt.settings.configPath, rt.settings.defaults)
	if err := w.Start(ctx); err != nil {
		rt.logger.Warn("config live reload disabled", "config_path", rt.settings.configPath, "err", err)
		return nil
	}
	out := make(chan tui.RuntimeConfig, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-w.Errors():
				rt.logger.Warn("config live reload failed", "config_path", rt.settings.configPath, "err", err)
			case cfg := <-w.Updates():
				cfg, err := rt.opts.overlay(cfg.ApplyEnv(os.Getenv))
				if err != nil {
					rt.logger.Warn("config live reload rejected", "err", err)
					continue
				}
				rt.logger.Info("config changed on disk", "config_path", rt.settings.configPath)
				select {
				case out <- toTUIRuntimeConfig(cfg):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
