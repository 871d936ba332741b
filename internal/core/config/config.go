// Package config loads the simulation's aggregated YAML configuration.
// Every subsystem owns its config struct and validation; this package only
// composes them, applies defaults underneath file overrides, and fingerprints
// the raw content so callers can skip redundant re-apply cycles on unchanged
// files.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/hackademics/runjumpski/internal/core/simulation/collision"
	"github.com/hackademics/runjumpski/internal/core/simulation/projectile"
	"github.com/hackademics/runjumpski/internal/core/simulation/quality"
	"github.com/hackademics/runjumpski/internal/core/simulation/runtime"
)

// Config is the full configuration surface of the simulation server.
type Config struct {
	Logging    LoggingConfig     `yaml:"logging"`
	Runtime    runtime.Config    `yaml:"runtime"`
	Projectile projectile.Config `yaml:"projectile"`
	Collision  collision.Config  `yaml:"collision"`
	Quality    quality.Config    `yaml:"quality"`
	Pools      PoolsConfig       `yaml:"pools"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error, fatal, silent.
	Level string `yaml:"level"`
}

// PoolsConfig sizes the projectile and particle-effect pools.
type PoolsConfig struct {
	ProjectilePrewarm int `yaml:"projectile_prewarm"`
	ProjectileMax     int `yaml:"projectile_max"`
	EffectPrewarm     int `yaml:"effect_prewarm"`
	EffectMax         int `yaml:"effect_max"`
}

// TelemetryConfig controls the HTTP/WebSocket stats server.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	// PushInterval is how often the WebSocket stream pushes a snapshot,
	// in milliseconds.
	PushIntervalMillis int `yaml:"push_interval_millis"`
}

// Default returns the configuration used when no file overrides are given.
func Default() Config {
	return Config{
		Logging:    LoggingConfig{Level: "info"},
		Runtime:    runtime.DefaultConfig(),
		Projectile: projectile.DefaultConfig(),
		Collision:  collision.DefaultConfig(),
		Quality:    quality.DefaultConfig(),
		Pools: PoolsConfig{
			ProjectilePrewarm: 20,
			ProjectileMax:     100,
			EffectPrewarm:     10,
			EffectMax:         50,
		},
		Telemetry: TelemetryConfig{
			Enabled:            true,
			Addr:               ":8090",
			PushIntervalMillis: 1000,
		},
	}
}

func (c Config) Validate() error {
	if err := c.Runtime.Validate(); err != nil {
		return err
	}
	if err := c.Projectile.Validate(); err != nil {
		return err
	}
	if err := c.Collision.Validate(); err != nil {
		return err
	}
	if err := c.Quality.Validate(); err != nil {
		return err
	}
	if c.Pools.ProjectilePrewarm < 0 || c.Pools.EffectPrewarm < 0 {
		return fmt.Errorf("config: negative pool prewarm")
	}
	if c.Telemetry.Enabled && c.Telemetry.Addr == "" {
		return fmt.Errorf("config: telemetry enabled without an address")
	}
	return nil
}

// LoadYAML decodes a config from the reader, layering file values over the
// defaults. The returned sum is the xxhash fingerprint of the raw content.
func LoadYAML(r io.Reader) (*Config, uint64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	sum := xxhash.Sum64(raw)

	cfg := Default()
	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, sum, fmt.Errorf("config: decode: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, sum, err
	}
	return &cfg, sum, nil
}

// LoadFile reads and decodes the config at path. An empty path yields the
// validated defaults with a zero fingerprint.
func LoadFile(path string) (*Config, uint64, error) {
	if path == "" {
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			return nil, 0, err
		}
		return &cfg, 0, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return LoadYAML(f)
}

// Watcher remembers the last applied fingerprint so periodic reloads can skip
// files whose content has not changed.
type Watcher struct {
	lastSum uint64
	loaded  bool
}

// Load reads path and reports whether the content differs from the last
// successful load. On an unchanged file it returns (nil, false, nil).
func (w *Watcher) Load(path string) (*Config, bool, error) {
	cfg, sum, err := LoadFile(path)
	if err != nil {
		return nil, false, err
	}
	if w.loaded && sum == w.lastSum {
		return nil, false, nil
	}
	w.lastSum = sum
	w.loaded = true
	return cfg, true, nil
}
