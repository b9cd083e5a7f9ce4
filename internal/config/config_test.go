package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/loggbok/log")
	if cfg.Log.Dir != "/tmp/loggbok/log" {
		t.Fatalf("unexpected log dir %q", cfg.Log.Dir)
	}
	if cfg.Log.SyncDir != filepath.Join("/tmp/loggbok/log", "sync") {
		t.Fatalf("unexpected sync dir %q", cfg.Log.SyncDir)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected level %q", cfg.Logging.Level)
	}
	if cfg.Render.Style != "dark" {
		t.Fatalf("unexpected style %q", cfg.Render.Style)
	}
	if cfg.Server.Bind != "127.0.0.1:8080" {
		t.Fatalf("unexpected bind %q", cfg.Server.Bind)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/loggbok/log")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Dir != defaults.Log.Dir {
		t.Fatalf("expected default log dir, got %q", cfg.Log.Dir)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
dir = "/custom/log"
sync_dir = "/custom/log/sync"

[logging]
level = "debug"

[render]
style = "light"
width = 100

[[sync.services]]
name = "strava"
id_field = "strava_id"

[[sync.services]]
name = "calendar"
id_field = "cal_id"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default/log"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Dir != "/custom/log" {
		t.Fatalf("unexpected log dir %q", cfg.Log.Dir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected level %q", cfg.Logging.Level)
	}
	if cfg.Render.Width != 100 {
		t.Fatalf("unexpected width %d", cfg.Render.Width)
	}
	if got := cfg.ServiceIDField("Strava"); got != "strava_id" {
		t.Fatalf("expected case-insensitive service lookup, got %q", got)
	}
	if got := cfg.ServiceIDField("github"); got != "" {
		t.Fatalf("expected empty field for unknown service, got %q", got)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"bad level":      "[logging]\nlevel = \"loud\"\n",
		"negative width": "[render]\nwidth = -1\n",
		"missing name":   "[[sync.services]]\nid_field = \"x\"\n",
		"missing field":  "[[sync.services]]\nname = \"strava\"\n",
		"duplicate name": "[[sync.services]]\nname = \"strava\"\nid_field = \"a\"\n\n[[sync.services]]\nname = \"STRAVA\"\nid_field = \"b\"\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if _, err := Load(path, Default("/tmp/log")); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestEnsureConfigDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := EnsureConfigDir(path); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
}
