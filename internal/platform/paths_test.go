package platform

import (
	"path/filepath"
	"testing"
)

func TestPathsFor(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		configDir  string
		dataDir    string
		wantConfig string
		wantData   string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			configDir:  "/home/me/.config",
			dataDir:    "/home/me/.local/share",
			wantConfig: filepath.Join("/xdg/config", "trackit", "config.toml"),
			wantData:   filepath.Join("/xdg/data", "trackit"),
		},
		{
			name:       "linux without xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "  "},
			configDir:  "/home/me/.config",
			dataDir:    "/home/me/.local/share",
			wantConfig: filepath.Join("/home/me/.config", "trackit", "config.toml"),
			wantData:   filepath.Join("/home/me/.local/share", "trackit"),
		},
		{
			name:       "windows appdata",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Roaming`, "LOCALAPPDATA": `C:\Local`},
			configDir:  `C:\fallback`,
			dataDir:    `C:\fallback`,
			wantConfig: filepath.Join(`C:\Roaming`, "trackit", "config.toml"),
			wantData:   filepath.Join(`C:\Local`, "trackit"),
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_DATA_HOME": "/ignored"},
			configDir:  "/Users/me/Library/Application Support",
			dataDir:    "/Users/me/Library/Application Support",
			wantConfig: filepath.Join("/Users/me/Library/Application Support", "trackit", "config.toml"),
			wantData:   filepath.Join("/Users/me/Library/Application Support", "trackit"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := PathsFor(tc.goos, tc.env, tc.configDir, tc.dataDir, DefaultAppName)
			if err != nil {
				t.Fatalf("PathsFor() error = %v", err)
			}
			if p.ConfigPath != tc.wantConfig {
				t.Fatalf("ConfigPath = %q, want %q", p.ConfigPath, tc.wantConfig)
			}
			if p.DataDir != tc.wantData {
				t.Fatalf("DataDir = %q, want %q", p.DataDir, tc.wantData)
			}
			if p.DBPath != filepath.Join(tc.wantData, "credentials.db") || p.LogDir != filepath.Join(tc.wantData, "logs") {
				t.Fatalf("unexpected derived paths %#v", p)
			}
		})
	}
}

func TestPathsForRejectsEmptyInputs(t *testing.T) {
	if _, err := PathsFor("linux", nil, "", "/data", DefaultAppName); err == nil {
		t.Fatal("expected error for empty config dir")
	}
	if _, err := PathsFor("linux", nil, "/config", "/data", "  "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

func TestDefaultPathsDevModeSuffix(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	p, err := DefaultPaths(Options{DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPaths() error = %v", err)
	}
	if filepath.Base(p.DataDir) != "trackit-dev" {
		t.Fatalf("expected dev data dir, got %q", p.DataDir)
	}
}
