// Package config loads the persisted application settings.
//
// Settings live in a YAML file under the platform user configuration
// directory (XDG config dir on Linux, AppData on Windows, Application
// Support on macOS). A missing file is created with defaults on first run,
// so the defaults are discoverable and editable afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AppName names the per-application configuration directory.
const AppName = "fema-web-declaration"

// Config holds the application settings.
type Config struct {
	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug"`

	// NumYearsPrevious sets the rolling retrieval window: declarations
	// designated in the last N years are fetched.
	NumYearsPrevious int `yaml:"num_years_previous"`

	// CSV is the output file path. An empty value disables the export.
	CSV string `yaml:"csv"`
}

// Default returns the default settings.
func Default() Config {
	return Config{
		Debug:            false,
		NumYearsPrevious: 3,
		CSV:              "out.csv",
	}
}

// DefaultPath resolves the per-user config file location. It fails when the
// platform configuration directory cannot be determined.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, AppName, "config.yaml"), nil
}

// Load reads the settings from path. An empty path falls back to
// DefaultPath. If the file does not exist it is created with defaults and
// the defaults are returned.
func Load(path string) (Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := write(path, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the settings for values the retrieval cannot work with.
func (c Config) Validate() error {
	if c.NumYearsPrevious < 1 {
		return fmt.Errorf("num_years_previous must be positive, got %d", c.NumYearsPrevious)
	}
	return nil
}

// Cutoff computes the earliest designated date to retrieve: now minus
// NumYearsPrevious years, counted as 365-day years.
func (c Config) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -365*c.NumYearsPrevious)
}

// write persists cfg to path, creating parent directories as needed.
func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}

	return nil
}
