package config

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g.
// LAUNCHDECK_DISCOVERY_ACCEPT_UNTITLED=false
const EnvPrefix = "LAUNCHDECK"

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values; unset ones leave the
// current value untouched
func LoadFromEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return errors.Wrap(err, "failed to read environment overrides")
	}
	return nil
}

// New creates a new Config with default values and loads from environment
func New() (*Config, error) {
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
