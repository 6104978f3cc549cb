package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xrparb/core/internal/domain"
)

// Load reads and validates the configuration document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfigError, "read config file", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, domain.WrapError(domain.ErrConfigError, "parse config file", err)
	}
	if err := c.Validate(); err != nil {
		return nil, domain.WrapError(domain.ErrConfigError, "validate config", err)
	}
	return &c, nil
}
