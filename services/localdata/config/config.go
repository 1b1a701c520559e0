// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// maxConfigSize caps how much of a config file we are willing to read.
const maxConfigSize = 1 << 20

// Config is the top-level configuration for the local data layer.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after
// creation.
type Config struct {
	// Storage contains persistent store settings.
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Bus contains event bus settings.
	Bus BusConfig `json:"bus" yaml:"bus"`

	// Remote contains search API client settings.
	Remote RemoteConfig `json:"remote" yaml:"remote"`

	// Logging contains log output settings.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// StorageConfig contains persistent store settings.
type StorageConfig struct {
	// Dir is the on-disk data directory. Ignored when InMemory is set.
	Dir      string `json:"dir" yaml:"dir"`
	InMemory bool   `json:"in_memory" yaml:"in_memory"`
}

// BusConfig contains event bus settings.
type BusConfig struct {
	// FlushDelayMS is the pause between a publish and its delivery.
	FlushDelayMS int `json:"flush_delay_ms" yaml:"flush_delay_ms"`

	// Transport selects the cross-process fan-out: "local" (none),
	// "file:<path>" for a shared spool file, or "ws:<url>" for a
	// websocket relay.
	Transport string `json:"transport" yaml:"transport"`
}

// FlushDelay returns the publish flush delay as a duration.
func (b BusConfig) FlushDelay() time.Duration {
	return time.Duration(b.FlushDelayMS) * time.Millisecond
}

// RemoteConfig contains search API client settings.
type RemoteConfig struct {
	BaseURL          string  `json:"base_url" yaml:"base_url"`
	AttemptTimeoutMS int     `json:"attempt_timeout_ms" yaml:"attempt_timeout_ms"`
	BackoffDelayMS   int     `json:"backoff_delay_ms" yaml:"backoff_delay_ms"`
	MaxRetries       int     `json:"max_retries" yaml:"max_retries"`
	RateLimitRPS     float64 `json:"rate_limit_rps" yaml:"rate_limit_rps"`
}

// AttemptTimeout returns the per-attempt timeout as a duration.
func (r RemoteConfig) AttemptTimeout() time.Duration {
	return time.Duration(r.AttemptTimeoutMS) * time.Millisecond
}

// BackoffDelay returns the inter-attempt pause as a duration.
func (r RemoteConfig) BackoffDelay() time.Duration {
	return time.Duration(r.BackoffDelayMS) * time.Millisecond
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	Dir   string `json:"dir" yaml:"dir"`
	JSON  bool   `json:"json" yaml:"json"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Dir: "~/.almalink/data",
		},
		Bus: BusConfig{
			FlushDelayMS: 75,
			Transport:    "local",
		},
		Remote: RemoteConfig{
			BaseURL:          "http://localhost:8400",
			AttemptTimeoutMS: 5000,
			BackoffDelayMS:   1000,
			MaxRetries:       2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration with priority: env > file > defaults.
//
// # Inputs
//
//   - path: Path to a YAML or JSON config file. Empty or missing files
//     fall through to defaults.
//
// # Outputs
//
//   - Config: Merged configuration.
//   - error: Non-nil if the file exists but is oversized or invalid.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadEnv(&cfg)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() > maxConfigSize {
		return fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try YAML first, then JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("ALMALINK_DATA_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("ALMALINK_IN_MEMORY"); v != "" {
		cfg.Storage.InMemory = v == "true" || v == "1"
	}
	if v := os.Getenv("ALMALINK_FLUSH_DELAY_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Bus.FlushDelayMS = i
		}
	}
	if v := os.Getenv("ALMALINK_BUS_TRANSPORT"); v != "" {
		cfg.Bus.Transport = v
	}
	if v := os.Getenv("ALMALINK_REMOTE_URL"); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := os.Getenv("ALMALINK_MAX_RETRIES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Remote.MaxRetries = i
		}
	}
	if v := os.Getenv("ALMALINK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ApplyDefaults fills zero-valued fields from Default. It lets a
// partially-written config file omit whole sections.
func (c *Config) ApplyDefaults() {
	def := Default()
	if c.Storage.Dir == "" && !c.Storage.InMemory {
		c.Storage.Dir = def.Storage.Dir
	}
	if c.Bus.FlushDelayMS == 0 {
		c.Bus.FlushDelayMS = def.Bus.FlushDelayMS
	}
	if c.Bus.Transport == "" {
		c.Bus.Transport = def.Bus.Transport
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = def.Remote.BaseURL
	}
	if c.Remote.AttemptTimeoutMS == 0 {
		c.Remote.AttemptTimeoutMS = def.Remote.AttemptTimeoutMS
	}
	if c.Remote.BackoffDelayMS == 0 {
		c.Remote.BackoffDelayMS = def.Remote.BackoffDelayMS
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate checks field ranges and the transport selector.
func (c *Config) Validate() error {
	if !c.Storage.InMemory && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required unless storage.in_memory is set")
	}
	if c.Bus.FlushDelayMS < 0 {
		return fmt.Errorf("bus.flush_delay_ms must be >= 0, got %d", c.Bus.FlushDelayMS)
	}
	switch {
	case c.Bus.Transport == "local":
	case strings.HasPrefix(c.Bus.Transport, "file:") && len(c.Bus.Transport) > len("file:"):
	case strings.HasPrefix(c.Bus.Transport, "ws:") && len(c.Bus.Transport) > len("ws:"):
	default:
		return fmt.Errorf("bus.transport must be local, file:<path>, or ws:<url>, got %q", c.Bus.Transport)
	}
	if c.Remote.AttemptTimeoutMS <= 0 {
		return fmt.Errorf("remote.attempt_timeout_ms must be > 0, got %d", c.Remote.AttemptTimeoutMS)
	}
	if c.Remote.MaxRetries < 0 {
		return fmt.Errorf("remote.max_retries must be >= 0, got %d", c.Remote.MaxRetries)
	}
	if c.Remote.RateLimitRPS < 0 {
		return fmt.Errorf("remote.rate_limit_rps must be >= 0, got %g", c.Remote.RateLimitRPS)
	}
	return nil
}
