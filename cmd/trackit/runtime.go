package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evanschultz/trackit/internal/adapters/restapi"
	"github.com/evanschultz/trackit/internal/adapters/storage/sqlite"
	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/config"
	"github.com/evanschultz/trackit/internal/events"
	"github.com/evanschultz/trackit/internal/notify"
	"github.com/evanschultz/trackit/internal/platform"
	"github.com/evanschultz/trackit/internal/telemetry"
	"github.com/evanschultz/trackit/internal/tui"
)

// notificationBuffer bounds queued TUI notifications; extras are dropped.
const notificationBuffer = 32

// errLoginRequired is returned when a command needs a stored session.
var errLoginRequired = errors.New("not logged in: run `trackit login` first")

// runtimeMode selects how notifications and console logs are routed.
type runtimeMode int

const (
	modeCLI runtimeMode = iota
	modeTUI
	modeServe
)

// String names the mode for logs.
func (m runtimeMode) String() string {
	switch m {
	case modeTUI:
		return "tui"
	case modeServe:
		return "serve"
	default:
		return "cli"
	}
}

// rootOptions holds the persistent flag values.
type rootOptions struct {
	configPath string
	dbPath     string
	apiURL     string
	devMode    bool
}

// settings are the resolved file locations for one invocation.
type settings struct {
	paths      platform.Paths
	configPath string
	defaults   config.Config
}

// resolveSettings applies flag, env, and platform precedence to file locations.
func resolveSettings(opts *rootOptions) (settings, error) {
	paths, err := platform.DefaultPaths(platform.Options{
		AppName: platform.DefaultAppName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return settings{}, fmt.Errorf("resolve platform paths: %w", err)
	}
	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv(config.EnvConfigPath)); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	return settings{
		paths:      paths,
		configPath: configPath,
		defaults:   config.Default(paths.DBPath),
	}, nil
}

// load reads the config file and overlays env vars then flags.
func (s settings) load(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(s.configPath, s.defaults)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %q: %w", s.configPath, err)
	}
	return opts.overlay(cfg.ApplyEnv(os.Getenv))
}

// overlay applies flag overrides and revalidates.
func (o *rootOptions) overlay(cfg config.Config) (config.Config, error) {
	if v := strings.TrimSpace(o.dbPath); v != "" {
		cfg.Database.Path = v
	}
	if v := strings.TrimSpace(o.apiURL); v != "" {
		cfg.API.BaseURL = v
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// toTUIRuntimeConfig maps persisted config values into runtime model options.
func toTUIRuntimeConfig(cfg config.Config) tui.RuntimeConfig {
	return tui.RuntimeConfig{
		UpcomingDays: cfg.Tasks.UpcomingDays,
		ShowArchived: cfg.Tasks.ShowArchived,
	}
}

// cliRuntime is the fully wired client stack for one command.
type cliRuntime struct {
	opts     *rootOptions
	settings settings
	cfg      config.Config
	mode     runtimeMode
	now      func() time.Time

	logger    *runtimeLogger
	creds     *sqlite.CredentialStore
	telemetry *telemetry.Provider
	bus       *events.Bus
	notices   *notify.Channel
	client    *restapi.Client

	taskSvc   *app.TaskService
	habitSvc  *app.HabitService
	analytics *app.AnalyticsService
	session   *app.Session
	tasks     *app.TaskStore
	habits    *app.HabitStore
	dashboard *app.Dashboard
}

// openRuntime wires config, logging, credentials, tracing, the API client,
// services, and stores. The returned cleanup releases them in reverse order.
func openRuntime(ctx context.Context, opts *rootOptions, mode runtimeMode, stderr io.Writer) (*cliRuntime, func(), error) {
	s, err := resolveSettings(opts)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.load(opts)
	if err != nil {
		return nil, nil, err
	}

	logger, err := newRuntimeLogger(stderr, platform.DefaultAppName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if mode == modeTUI {
		logger.SetConsoleEnabled(false)
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	closers = append(closers, func() {
		if closeErr := logger.Close(); closeErr != nil && logger.ConsoleEnabled() {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	})
	fail := func(err error) (*cliRuntime, func(), error) {
		cleanup()
		return nil, nil, err
	}

	logger.Info("startup configuration resolved", "dev_mode", opts.devMode, "mode", mode.String())
	logger.Debug("runtime paths resolved", "config_path", s.configPath, "data_dir", s.paths.DataDir, "db_path", cfg.Database.Path)
	logger.Info("configuration loaded", "config_path", s.configPath, "api", cfg.API.BaseURL, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Debug("opening credential store", "db_path", cfg.Database.Path)
	creds, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("credential store open failed", "db_path", cfg.Database.Path, "err", err)
		return fail(fmt.Errorf("open credential store: %w", err))
	}
	closers = append(closers, func() {
		if closeErr := creds.Close(); closeErr != nil {
			logger.Warn("credential store close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	})

	provider, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		return fail(fmt.Errorf("init telemetry: %w", err))
	}
	closers = append(closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if shutdownErr := provider.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("telemetry shutdown failed", "err", shutdownErr)
		}
	})

	bus := events.New()
	var notifier notify.Notifier = notify.Logger{Sink: logger}
	var notices *notify.Channel
	if mode == modeTUI {
		notices = notify.NewChannel(notificationBuffer)
		notifier = notify.Fanout{notifier, notices}
	}

	timeout, err := cfg.API.TimeoutDuration()
	if err != nil {
		return fail(fmt.Errorf("api timeout: %w", err))
	}
	client, err := restapi.New(
		restapi.Config{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   timeout,
			UserAgent: "trackit/" + version,
		},
		creds,
		restapi.WithLogger(logger),
		restapi.WithTracer(provider.Tracer),
		restapi.WithNotifier(notifier),
		restapi.WithRequestIDs(uuid.NewString),
		restapi.WithSessionExpired(func() {
			bus.Publish(events.TopicSessionExpired, nil)
		}),
	)
	if err != nil {
		return fail(fmt.Errorf("configure api client: %w", err))
	}
	sub := bus.Subscribe(events.TopicSessionExpired, func(events.Event) {
		logger.Warn("session expired; stored credentials cleared")
	})
	closers = append(closers, func() { bus.Unsubscribe(sub) })

	storeDeps := app.StoreDeps{Notifier: notifier, Publisher: bus, Logger: logger}
	taskSvc := app.NewTaskService(client)
	habitSvc := app.NewHabitService(client)
	analytics := app.NewAnalyticsService(client)
	tasks := app.NewTaskStore(taskSvc, storeDeps)
	habits := app.NewHabitStore(habitSvc, storeDeps)
	closers = append(closers, tasks.Dispose, habits.Dispose)

	rt := &cliRuntime{
		opts:      opts,
		settings:  s,
		cfg:       cfg,
		mode:      mode,
		now:       time.Now,
		logger:    logger,
		creds:     creds,
		telemetry: provider,
		bus:       bus,
		notices:   notices,
		client:    client,
		taskSvc:   taskSvc,
		habitSvc:  habitSvc,
		analytics: analytics,
		session: app.NewSession(app.NewAuthService(client), creds, app.SessionDeps{
			Notifier:  notifier,
			Publisher: bus,
			Logger:    logger,
		}),
		tasks:  tasks,
		habits: habits,
		dashboard: app.NewDashboard(taskSvc, habitSvc, analytics, app.DashboardConfig{
			Days:        cfg.Dashboard.Days,
			RecentLimit: cfg.Dashboard.RecentLimit,
		}, logger),
	}
	logger.Debug("client stack initialized", "api", client.BaseURL(), "timeout", timeout.String())
	return rt, cleanup, nil
}

// requireSession returns the stored session or errLoginRequired.
// Expired tokens are cleared on the way.
func (rt *cliRuntime) requireSession(ctx context.Context) (app.Credentials, error) {
	creds, err := rt.session.Restore(ctx, rt.now())
	if errors.Is(err, app.ErrNotAuthenticated) {
		return app.Credentials{}, errLoginRequired
	}
	if err != nil {
		return app.Credentials{}, err
	}
	return creds, nil
}

// flow logs the start and outcome of one command.
func (rt *cliRuntime) flow(name string, fn func() error) error {
	rt.logger.Info("command flow start", "command", name)
	if err := fn(); err != nil {
		rt.logger.Error("command flow failed", "command", name, "err", err)
		return err
	}
	rt.logger.Info("command flow complete", "command", name)
	return nil
}

// parseBoolEnv parses a boolean env var; ok is false when unset or invalid.
func parseBoolEnv(name string) (value bool, ok bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// parseID parses a positive numeric id argument.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// runAuthed opens a CLI runtime, requires a stored session, and runs fn as
// one logged command flow.
func runAuthed(cmd *cobra.Command, opts *rootOptions, name string, fn func(ctx context.Context, rt *cliRuntime) error) error {
	ctx := cmd.Context()
	rt, cleanup, err := openRuntime(ctx, opts, modeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()

	return rt.flow(name, func() error {
		if _, err := rt.requireSession(ctx); err != nil {
			return err
		}
		return fn(ctx, rt)
	})
}
