package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen   = "127.0.0.1:5810"
	DefaultModel    = "decay"
	DefaultDataDir  = ".odelab"
	DefaultInterval = 0.1
)

type Config struct {
	Listen   string     `yaml:"listen"`
	LogLevel string     `yaml:"log_level"`
	Model    string     `yaml:"model"`
	DataDir  string     `yaml:"data_dir"`
	T0       float64    `yaml:"t0"`
	Step     StepConfig `yaml:"step"`
}

// StepConfig bounds the integrator's internal step sizes. Zero values
// mean automatic initial step and unbounded maximum.
type StepConfig struct {
	Initial float64 `yaml:"initial"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:   DefaultListen,
		LogLevel: "info",
		Model:    DefaultModel,
		DataDir:  DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Step.Min < 0 {
		return fmt.Errorf("step.min must be non-negative, got %g", c.Step.Min)
	}
	if c.Step.Max > 0 && c.Step.Min > c.Step.Max {
		return fmt.Errorf("step.min %g exceeds step.max %g", c.Step.Min, c.Step.Max)
	}
	return nil
}
