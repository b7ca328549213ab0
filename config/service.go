package config

import (
	"fmt"

	"github.com/vidpipe/vidpipe/logger"
	"github.com/vidpipe/vidpipe/runtime"
	"github.com/vidpipe/vidpipe/validation"
)

// VidpipeConfig is the configuration object a host embedding vidpipe loads
// via LoadConfig: the generic BaseConfig plus this runtime's own pipeline
// knobs. Projects built on top of `config` extend the base the same way —
// by embedding it alongside their own domain config — but vidpipe itself
// only ever needs Base, Logging, and Runtime.
type VidpipeConfig struct {
	Base    BaseConfig     `yaml:"base" mapstructure:"base"`
	Logging logger.Config  `yaml:"logging" mapstructure:"logging"`
	Runtime runtime.Config `yaml:"runtime" mapstructure:"runtime"`
}

// DefaultVidpipeConfig seeds a VidpipeConfig with spec.md §6's runtime
// defaults, so a host only needs to override what it cares about from
// YAML/env rather than spell out every field.
func DefaultVidpipeConfig(serviceName string) VidpipeConfig {
	return VidpipeConfig{
		Base:    BaseConfig{Name: serviceName},
		Runtime: runtime.DefaultConfig(),
	}
}

// LoadVidpipeConfig loads a VidpipeConfig from YAML/env (via the generic
// LoadConfig) layered over spec.md's runtime defaults, then validates it:
// Base and Logging via their own hand-rolled Validate, and Runtime via
// validation.Validate's enforcement of its `validate:"gte=0"`/
// `validate:"gt=0"` struct tags.
func LoadVidpipeConfig(serviceName string, opts ...LoaderOption) (*VidpipeConfig, error) {
	cfg := DefaultVidpipeConfig(serviceName)
	if err := LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", serviceName, err)
	}

	cfg.Base.ApplyDefaults()
	if cfg.Logging.ServiceName == "" {
		cfg.Logging.ServiceName = cfg.Base.Name
	}
	cfg.Logging.ApplyDefaults()

	if err := cfg.Base.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, fmt.Errorf("config.logging: %w", err)
	}
	if err := validation.Validate(cfg.Runtime); err != nil {
		return nil, fmt.Errorf("config.runtime: %w", err)
	}
	return &cfg, nil
}
