// Package wildfireconfig holds the tunable parameters of the wildfire
// association engine and pipeline as an optional-field JSON document:
// any field a config file omits falls back to the package default, so a
// partial override file is always safe to load.
package wildfireconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig is the root configuration document. All fields are
// pointers so the JSON decoder can distinguish "unset" from "set to the
// zero value".
type TuningConfig struct {
	// Association engine
	MatchEps      *float64 `json:"match_eps,omitempty"`
	StaleFloor    *string  `json:"stale_floor,omitempty"`    // duration string like "96h"
	StaleAbsolute *string  `json:"stale_absolute,omitempty"` // duration string like "720h"
	PurgeInterval *string  `json:"purge_interval,omitempty"` // duration string like "24h"
	PurgeHorizon  *string  `json:"purge_horizon,omitempty"`  // duration string like "504h"

	// Pipeline
	ChannelCapacity      *int `json:"channel_capacity,omitempty"`
	FireBatchSize        *int `json:"fire_batch_size,omitempty"`
	AssociationBatchSize *int `json:"association_batch_size,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with every field nil; every
// Get* accessor then falls back to its package default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields the file
// omits keep their default values.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("wildfireconfig: config file must have .json extension, got %q", ext)
	}

	const maxFileSize = 1 * 1024 * 1024 // 1MB
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("wildfireconfig: stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("wildfireconfig: config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("wildfireconfig: read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("wildfireconfig: parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("wildfireconfig: invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that any set fields parse and fall within sane ranges.
func (c *TuningConfig) Validate() error {
	if c.MatchEps != nil && *c.MatchEps <= 0 {
		return fmt.Errorf("match_eps must be positive, got %g", *c.MatchEps)
	}
	for name, s := range map[string]*string{
		"stale_floor": c.StaleFloor, "stale_absolute": c.StaleAbsolute,
		"purge_interval": c.PurgeInterval, "purge_horizon": c.PurgeHorizon,
	} {
		if s != nil && *s != "" {
			if _, err := time.ParseDuration(*s); err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, *s, err)
			}
		}
	}
	if c.ChannelCapacity != nil && *c.ChannelCapacity <= 0 {
		return fmt.Errorf("channel_capacity must be positive, got %d", *c.ChannelCapacity)
	}
	if c.FireBatchSize != nil && *c.FireBatchSize <= 0 {
		return fmt.Errorf("fire_batch_size must be positive, got %d", *c.FireBatchSize)
	}
	if c.AssociationBatchSize != nil && *c.AssociationBatchSize <= 0 {
		return fmt.Errorf("association_batch_size must be positive, got %d", *c.AssociationBatchSize)
	}
	return nil
}

// GetMatchEps returns MatchEps or the association engine's default
// (fire.MatchEps).
func (c *TuningConfig) GetMatchEps() float64 {
	if c.MatchEps == nil {
		return 1.0e-5
	}
	return *c.MatchEps
}

func (c *TuningConfig) getDuration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetStaleFloor returns StaleFloor or the default 4-day floor.
func (c *TuningConfig) GetStaleFloor() time.Duration {
	return c.getDuration(c.StaleFloor, 4*24*time.Hour)
}

// GetStaleAbsolute returns StaleAbsolute or the default 30-day absolute.
func (c *TuningConfig) GetStaleAbsolute() time.Duration {
	return c.getDuration(c.StaleAbsolute, 30*24*time.Hour)
}

// GetPurgeInterval returns PurgeInterval or the default 24-hour cadence.
func (c *TuningConfig) GetPurgeInterval() time.Duration {
	return c.getDuration(c.PurgeInterval, 24*time.Hour)
}

// GetPurgeHorizon returns PurgeHorizon or the default 21-day horizon.
func (c *TuningConfig) GetPurgeHorizon() time.Duration {
	return c.getDuration(c.PurgeHorizon, 21*24*time.Hour)
}

// GetChannelCapacity returns ChannelCapacity or the pipeline's default.
func (c *TuningConfig) GetChannelCapacity() int {
	if c.ChannelCapacity == nil {
		return 1000
	}
	return *c.ChannelCapacity
}

// GetFireBatchSize returns FireBatchSize or the writer's default.
func (c *TuningConfig) GetFireBatchSize() int {
	if c.FireBatchSize == nil {
		return 10_000
	}
	return *c.FireBatchSize
}

// GetAssociationBatchSize returns AssociationBatchSize or the writer's
// default.
func (c *TuningConfig) GetAssociationBatchSize() int {
	if c.AssociationBatchSize == nil {
		return 100_000
	}
	return *c.AssociationBatchSize
}
