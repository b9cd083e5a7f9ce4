package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the persisted TOML configuration.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Logging LoggingConfig `toml:"logging"`
	Render  RenderConfig  `toml:"render"`
	Server  ServerConfig  `toml:"server"`
	Sync    SyncConfig    `toml:"sync"`
}

// LogConfig locates the log directory tree.
type LogConfig struct {
	Dir     string `toml:"dir"`
	SyncDir string `toml:"sync_dir"`
}

// LoggingConfig controls runtime diagnostics output.
type LoggingConfig struct {
	Level   string           `toml:"level"`
	DevFile DevFileLogConfig `toml:"dev_file"`
}

// DevFileLogConfig controls the optional logfmt dev-file sink.
type DevFileLogConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// RenderConfig controls terminal markdown rendering.
type RenderConfig struct {
	Style string `toml:"style"`
	Width int    `toml:"width"`
}

// ServerConfig controls the serve command's endpoints.
type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// SyncConfig lists the external services the merge engine accepts.
type SyncConfig struct {
	Services []SyncServiceConfig `toml:"services"`
}

// SyncServiceConfig names one external service and the payload field
// carrying its record id, the dedup key for merges.
type SyncServiceConfig struct {
	Name    string `toml:"name"`
	IDField string `toml:"id_field"`
}

// Default returns the configuration used when no file exists yet.
func Default(logDir string) Config {
	return Config{
		Log: LogConfig{
			Dir:     logDir,
			SyncDir: filepath.Join(logDir, "sync"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Render: RenderConfig{
			Style: "dark",
			Width: 0,
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

// Load reads the TOML file over the defaults. A missing or empty file
// yields the defaults unchanged.
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

// Validate rejects configurations the runtime cannot operate on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Log.Dir) == "" {
		return errors.New("log dir is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if c.Render.Width < 0 {
		return errors.New("render.width must be >= 0")
	}

	seen := map[string]struct{}{}
	for idx, svc := range c.Sync.Services {
		name := strings.TrimSpace(strings.ToLower(svc.Name))
		if name == "" {
			return fmt.Errorf("sync.services[%d].name is required", idx)
		}
		if strings.TrimSpace(svc.IDField) == "" {
			return fmt.Errorf("sync.services[%d].id_field is required", idx)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("sync.services[%d].name is duplicated: %s", idx, name)
		}
		seen[name] = struct{}{}
	}

	return nil
}

// ServiceIDField returns the configured dedup field for a service, or ""
// when the service is not configured.
func (c Config) ServiceIDField(service string) string {
	service = strings.TrimSpace(strings.ToLower(service))
	for _, svc := range c.Sync.Services {
		if strings.TrimSpace(strings.ToLower(svc.Name)) == service {
			return svc.IDField
		}
	}
	return ""
}

// EnsureConfigDir creates the directory holding the config file.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
