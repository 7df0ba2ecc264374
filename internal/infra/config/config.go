// Package config provides settings loading and persistence from YAML
// files.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the persisted application settings.
type Config struct {
	Location string       `yaml:"location"`
	Volume   int          `yaml:"volume" default:"100" validate:"gte=0,lte=100"`
	Muted    bool         `yaml:"muted"`
	Wrap     string       `yaml:"wrap" default:"none" validate:"oneof=none around"`
	Engine   EngineConfig `yaml:"engine"`
	Log      LogConfig    `yaml:"log"`
}

// EngineConfig selects and configures the media engine.
type EngineConfig struct {
	Type     string         `yaml:"type" default:"beep" validate:"oneof=beep clock"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" default:"stdout"`
}

// DefaultPath returns the settings file location under the XDG config
// home.
func DefaultPath() string {
	path, err := xdg.ConfigFile("dirplay/config.yaml")
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return path
}

// Load loads settings from a YAML file. A missing file is not an
// error: defaults apply. Environment variables take precedence over
// file values.
func Load(path string) (*Config, error) {
	var cfg Config

	// Defaults go on the fresh struct; file and env values overwrite
	// them, and an explicit zero (volume: 0) survives the merge.
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// First run, defaults only.
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if cfg.Location == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve home directory")
		}
		cfg.Location = home
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DIRPLAY_LOCATION"); v != "" {
		c.Location = v
	}
	if v := os.Getenv("DIRPLAY_VOLUME"); v != "" {
		if vol, err := strconv.Atoi(v); err == nil {
			c.Volume = vol
		}
	}
	if v := os.Getenv("DIRPLAY_ENGINE"); v != "" {
		c.Engine.Type = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// Save writes the settings back to path, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}
