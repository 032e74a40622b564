// Package config holds the run configuration of the timing simulator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/lc3bsim/timing/cache"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

// CacheConfig describes the optional L1 data cache profiler.
type CacheConfig struct {
	// Enabled attaches the profiler to data accesses. Default: false.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Size in bytes. Default: 2048.
	Size int `json:"size" yaml:"size"`

	// Associativity is the number of ways. Default: 4.
	Associativity int `json:"associativity" yaml:"associativity"`

	// BlockSize is the line size in bytes. Default: 16.
	BlockSize int `json:"block_size" yaml:"block_size"`
}

// Geometry returns the cache geometry.
func (c CacheConfig) Geometry() cache.Config {
	return cache.Config{
		Size:          c.Size,
		Associativity: c.Associativity,
		BlockSize:     c.BlockSize,
	}
}

// Config holds the settings of one simulation run.
type Config struct {
	// Scheduler names the scheduling algorithm: stepped, analytical or
	// timeline. Default: stepped.
	Scheduler string `json:"scheduler" yaml:"scheduler"`

	// TimelineCapacity is the number of cycle offsets the timeline
	// scheduler can hold. Default: 32.
	TimelineCapacity int `json:"timeline_capacity" yaml:"timeline_capacity"`

	// MaxInstructions stops the run after that many instructions retire.
	// Default: 0 (no limit).
	MaxInstructions uint64 `json:"max_instructions" yaml:"max_instructions"`

	// ClockFrequency converts cycles to simulated time. Default: 1 GHz.
	ClockFrequency sim.Freq `json:"clock_frequency" yaml:"clock_frequency"`

	// DCache configures the data cache profiler.
	DCache CacheConfig `json:"dcache" yaml:"dcache"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	l1d := cache.DefaultL1DConfig()

	return &Config{
		Scheduler:        pipeline.KindStepped.String(),
		TimelineCapacity: pipeline.DefaultTimelineCapacity,
		MaxInstructions:  0,
		ClockFrequency:   1 * sim.GHz,
		DCache: CacheConfig{
			Enabled:       false,
			Size:          l1d.Size,
			Associativity: l1d.Associativity,
			BlockSize:     l1d.BlockSize,
		},
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig loads a Config from a JSON file, or a YAML file when the path
// ends in .yaml or .yml. Fields missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a file in the format its extension names.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Kind returns the configured scheduler kind.
func (c *Config) Kind() (pipeline.Kind, error) {
	return pipeline.ParseKind(c.Scheduler)
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if _, err := c.Kind(); err != nil {
		return err
	}
	if c.TimelineCapacity < pipeline.Depth {
		return fmt.Errorf("timeline_capacity must be >= %d", pipeline.Depth)
	}
	if c.ClockFrequency <= 0 {
		return fmt.Errorf("clock_frequency must be > 0")
	}
	if c.DCache.Enabled {
		if err := c.DCache.Geometry().Validate(); err != nil {
			return fmt.Errorf("invalid dcache: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
