package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

var (
	ErrInvalidCacheSize    = errors.New("cache size must not be negative")
	ErrInvalidSamplerRatio = errors.New("sampler ratio must be within [0, 1]")
)

func Init() (*Config, error) {
	cfg := &Config{}

	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse configuration: %w", err)
	}

	if len(ServiceVersion) != 0 {
		cfg.App.ServiceVersion = ServiceVersion
	}

	if len(CommitSHA) != 0 {
		cfg.App.CommitSHA = CommitSHA
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Cache.Size < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.Cache.Size)
	}

	if ratio := c.Telemetry.Traces.SamplerRatio; ratio < 0 || ratio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSamplerRatio, ratio)
	}

	return nil
}
