package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Environment overrides.
const (
	EnvConfigPath = "TRACKIT_CONFIG"
	EnvDBPath     = "TRACKIT_DB_PATH"
	EnvAPIURL     = "TRACKIT_API_URL"
	EnvDevMode    = "TRACKIT_DEV_MODE"
)

// DefaultBaseURL is the local Trackit API.
const DefaultBaseURL = "http://localhost:8080/api"

type Config struct {
	API       APIConfig       `toml:"api"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Tasks     TasksConfig     `toml:"tasks"`
	Refresh   RefreshConfig   `toml:"refresh"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type APIConfig struct {
	BaseURL string `toml:"base_url"`
	// Timeout is a Go duration string such as "10s".
	Timeout string `toml:"timeout"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type DashboardConfig struct {
	Days        int `toml:"days"`
	RecentLimit int `toml:"recent_limit"`
}

type TasksConfig struct {
	UpcomingDays int  `toml:"upcoming_days"`
	ShowArchived bool `toml:"show_archived"`
}

type RefreshConfig struct {
	Enabled bool `toml:"enabled"`
	// Schedule is a standard cron spec or descriptor such as "@every 5m".
	Schedule string `toml:"schedule"`
}

type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	Exporter    string `toml:"exporter"` // otlp | stdout
	Endpoint    string `toml:"endpoint"`
	ServiceName string `toml:"service_name"`
}

func Default(dbPath string) Config {
	return Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: "10s",
		},
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".trackit/log",
			},
		},
		Dashboard: DashboardConfig{
			Days:        7,
			RecentLimit: 5,
		},
		Tasks: TasksConfig{
			UpcomingDays: 7,
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Schedule: "@every 5m",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Exporter:    "otlp",
			ServiceName: "trackit",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overlays TRACKIT_* variables read through getenv.
func (c Config) ApplyEnv(getenv func(string) string) Config {
	if getenv == nil {
		return c
	}
	if v := strings.TrimSpace(getenv(EnvDBPath)); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		c.API.BaseURL = v
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	u, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}
	if _, err := c.API.TimeoutDuration(); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if c.Dashboard.Days < 1 || c.Dashboard.Days > 90 {
		return fmt.Errorf("dashboard.days must be between 1 and 90, got %d", c.Dashboard.Days)
	}
	if c.Dashboard.RecentLimit < 1 {
		return fmt.Errorf("dashboard.recent_limit must be >= 1, got %d", c.Dashboard.RecentLimit)
	}
	if c.Tasks.UpcomingDays < 1 {
		return fmt.Errorf("tasks.upcoming_days must be >= 1, got %d", c.Tasks.UpcomingDays)
	}

	if c.Refresh.Enabled {
		if _, err := cron.ParseStandard(strings.TrimSpace(c.Refresh.Schedule)); err != nil {
			return fmt.Errorf("invalid refresh.schedule %q: %w", c.Refresh.Schedule, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Telemetry.Exporter)) {
	case "otlp", "stdout":
	default:
		return fmt.Errorf("invalid telemetry.exporter: %q", c.Telemetry.Exporter)
	}
	return nil
}

// TimeoutDuration parses the request timeout. Empty means the client default.
func (a APIConfig) TimeoutDuration() (time.Duration, error) {
	raw := strings.TrimSpace(a.Timeout)
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		raw = strconv.Itoa(secs) + "s"
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid api.timeout: %q", a.Timeout)
	}
	return d, nil
}

// Write encodes cfg as TOML at path, creating the directory.
func Write(path string, cfg Config) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
