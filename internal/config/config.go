package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultStalenessThreshold is the carry-forward count at which an incomplete
// task is no longer pre-selected during rollover planning.
const DefaultStalenessThreshold = 4

// Config models weekplan.yml.
type Config struct {
	Rollover struct {
		StalenessThreshold int `yaml:"staleness_threshold"`
	} `yaml:"rollover"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "weekplan.yml")
}

// Default returns the default configuration.
func Default() *Config {
	var cfg Config
	cfg.Rollover.StalenessThreshold = DefaultStalenessThreshold
	return &cfg
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Rollover.StalenessThreshold < 1 {
		return fmt.Errorf("config.rollover.staleness_threshold must be >= 1")
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must be >= 0", i)
		}
	}
	return nil
}

// FromYAML parses and validates config from raw YAML bytes. Omitted fields
// fall back to defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if cfg.Rollover.StalenessThreshold == 0 {
		cfg.Rollover.StalenessThreshold = DefaultStalenessThreshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}
