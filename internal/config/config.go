// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package config loads layered configuration with koanf: struct
// defaults first, then an optional YAML file, then DG_-prefixed
// environment variables on top.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/dualgravity/internal/catalog"
	"github.com/tomtom215/dualgravity/internal/healing"
	"github.com/tomtom215/dualgravity/internal/logging"
	"github.com/tomtom215/dualgravity/internal/pipeline"
	"github.com/tomtom215/dualgravity/internal/store"
)

// DefaultConfigPaths lists the config file search order. The first
// file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/dualgravity/config.yaml",
	"/etc/dualgravity/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "DG_CONFIG_PATH"

// envPrefix namespaces the engine's environment variables.
const envPrefix = "DG_"

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Host is the bind address. Default: 0.0.0.0
	Host string `koanf:"host"`

	// Port is the listen port. Default: 3857
	Port int `koanf:"port"`

	// ReadTimeout and WriteTimeout bound request handling.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins is empty by default: cross-origin access requires
	// explicit configuration.
	CORSOrigins []string `koanf:"cors_origins"`

	// Rate limiting, keyed by client IP.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// HealingConfig holds the lazy enrichment queue settings.
type HealingConfig struct {
	// Enabled turns the durable healing queue on. Default: true
	Enabled bool `koanf:"enabled"`

	// Path is the badger directory for the job outbox.
	Path string `koanf:"path"`

	Worker healing.WorkerConfig `koanf:"worker"`
}

// CacheConfig holds the in-memory artist profile cache settings.
type CacheConfig struct {
	// Capacity is the LRU entry limit. Default: 2048
	Capacity int `koanf:"capacity"`

	// TTL is how long a cached profile stays fresh. Default: 30m
	TTL time.Duration `koanf:"ttl"`
}

// SessionConfig holds gravity session retention settings.
type SessionConfig struct {
	// MaxAge evicts idle sessions. Zero disables expiry. Default: 24h
	MaxAge time.Duration `koanf:"max_age"`
}

// Config is the engine's complete configuration.
type Config struct {
	Server   ServerConfig    `koanf:"server"`
	Logging  logging.Config  `koanf:"logging"`
	Catalog  catalog.Config  `koanf:"catalog"`
	Database store.Config    `koanf:"database"`
	Pipeline pipeline.Config `koanf:"pipeline"`
	Healing  HealingConfig   `koanf:"healing"`
	Cache    CacheConfig     `koanf:"cache"`
	Sessions SessionConfig   `koanf:"sessions"`
}

// defaultConfig returns the full default tree. File and env layers
// override these values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3857,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging:  logging.DefaultConfig(),
		Catalog:  catalog.DefaultConfig(),
		Database: store.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
		Healing: HealingConfig{
			Enabled: true,
			Path:    "/data/dualgravity/healing",
			Worker:  healing.DefaultWorkerConfig(),
		},
		Cache: CacheConfig{
			Capacity: 2048,
			TTL:      30 * time.Minute,
		},
		Sessions: SessionConfig{
			MaxAge: 24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and DG_ environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// DG_SERVER_PORT -> server.port, DG_CATALOG_BASE_URL -> catalog.base_url
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if c.Healing.Enabled && c.Healing.Path == "" {
		return fmt.Errorf("healing.path is required when healing is enabled")
	}
	if c.Pipeline.TurnBudget > 0 && c.Pipeline.HealingReserve >= c.Pipeline.TurnBudget {
		return fmt.Errorf("pipeline.healing_reserve must be smaller than pipeline.turn_budget")
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps DG_SECTION_SOME_KEY to section.some_key. Only the
// first underscore separates the section; the rest stay in the key, so
// DG_CATALOG_BASE_URL lands on catalog.base_url.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	// Nested worker keys use a double underscore: DG_HEALING_WORKER__INTERVAL.
	rest = strings.ReplaceAll(rest, "__", ".")
	return section + "." + rest
}

// sliceConfigPaths lists keys that arrive from the environment as
// comma-separated strings but unmarshal into slices.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw := k.Get(path)
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
