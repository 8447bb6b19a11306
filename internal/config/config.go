// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config holds the execution configuration for DAG nets.
//
// Everything that was once an ambient process-wide switch (chaining,
// stats collection) is an explicit field here, passed to the net
// constructor.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls how a DAG net schedules its graph.
type Config struct {
	// Name identifies the net in logs.
	Name string `yaml:"name"`

	// NumWorkers is the size of the worker pool. Zero means unset: the
	// net falls back to a single worker and warns, since one worker
	// serializes all execution. Negative values fail validation.
	NumWorkers int `yaml:"num_workers"`

	// DisableChaining makes every node its own chain instead of
	// collapsing straight-line runs. Chaining is an optimization, not a
	// semantic change; disabling it isolates correctness issues.
	DisableChaining bool `yaml:"disable_chaining"`

	// CollectStats enables per-device timing of queue wait and chain
	// execution.
	CollectStats bool `yaml:"collect_stats"`

	// Logger receives scheduling diagnostics. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// Default returns the configuration used when the caller specifies
// nothing: one worker, chaining enabled, stats off.
func Default() Config {
	return Config{Name: "net", NumWorkers: 1}
}

// Validate checks the configuration for values that cannot be defaulted
// away.
func (c *Config) Validate() error {
	if c.NumWorkers < 0 {
		return fmt.Errorf("config: num_workers must be positive, got %d", c.NumWorkers)
	}
	return nil
}

// Load reads a configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = "net"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
