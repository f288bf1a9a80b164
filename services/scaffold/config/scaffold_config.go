// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the scaffold service configuration from YAML, with
// compiled-in defaults used when no config file is supplied.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// configTracer is the OTel tracer for config loading.
var configTracer = otel.Tracer("scaffold.config")

// MaxYAMLFileSize caps config files at 1MB. A scaffold config is a handful
// of scalars; anything larger is a mistake or an attack.
const MaxYAMLFileSize = 1 * 1024 * 1024

// =============================================================================
// Embedded Default Configuration
// =============================================================================

//go:embed scaffold_defaults.yaml
var defaultScaffoldYAML []byte

// =============================================================================
// Scaffold Configuration Types
// =============================================================================

// ScaffoldConfig holds all settings for wrapper extraction and serving.
//
// Description:
//
//	Directories are interpreted relative to the project root given on the
//	command line. The zero value is not usable; load through
//	LoadScaffoldConfig or GetScaffoldConfig so defaults apply.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type ScaffoldConfig struct {
	// WrappersDir is the directory holding wrapper .ts sources.
	WrappersDir string `yaml:"wrappers_dir"`

	// BuildDir is the directory holding compiled *.compiled.json artifacts.
	BuildDir string `yaml:"build_dir"`

	// OutputDir is where wrappers.json and config.json are written.
	OutputDir string `yaml:"output_dir"`

	// Cache configures walk-result persistence.
	Cache CacheConfig `yaml:"cache"`

	// Watch configures filesystem watching.
	Watch WatchConfig `yaml:"watch"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// Parser configures source parsing limits.
	Parser ParserConfig `yaml:"parser"`
}

// CacheConfig configures the BadgerDB walk cache.
type CacheConfig struct {
	// Enabled controls whether walk results persist between runs.
	Enabled bool `yaml:"enabled"`

	// Dir is the cache directory. Empty means ~/.tinfoil/cache/walks.
	Dir string `yaml:"dir"`

	// TTLHours is the lifetime of one cached entry.
	TTLHours int `yaml:"ttl_hours"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// DebounceMs is the quiet period after a filesystem event before a
	// re-scan fires. Editors save in bursts; one scan per burst is enough.
	DebounceMs int `yaml:"debounce_ms"`
}

// ServerConfig configures `tinfoil serve`.
type ServerConfig struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// EventBuffer is the per-subscriber buffered event count before a slow
	// websocket client is dropped.
	EventBuffer int `yaml:"event_buffer"`
}

// ParserConfig configures source parsing limits.
type ParserConfig struct {
	// MaxFileSizeBytes is the hard limit on wrapper source size.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`
}

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultWrappersDir is the blueprint-conventional wrapper source dir.
	DefaultWrappersDir = "wrappers"

	// DefaultBuildDir is the blueprint-conventional compile output dir.
	DefaultBuildDir = "build"

	// DefaultOutputDir is where manifests land by default.
	DefaultOutputDir = "."

	// DefaultCacheTTLHours is one week.
	DefaultCacheTTLHours = 168

	// DefaultWatchDebounceMs is the default watch quiet period.
	DefaultWatchDebounceMs = 300

	// DefaultServerPort is the default HTTP listen port.
	DefaultServerPort = 8090

	// DefaultEventBuffer is the default per-subscriber event buffer.
	DefaultEventBuffer = 16

	// DefaultMaxFileSizeBytes is the default wrapper source size limit.
	DefaultMaxFileSizeBytes = 10 * 1024 * 1024
)

// =============================================================================
// Singleton Scaffold Config
// =============================================================================

var (
	scaffoldConfigMu      sync.RWMutex
	scaffoldConfigOnce    sync.Once
	cachedScaffoldConfig  *ScaffoldConfig
	scaffoldConfigLoadErr error
)

// GetScaffoldConfig returns the cached scaffold configuration built from the
// embedded defaults.
//
// Description:
//
//	Loads on first call and caches for subsequent calls. Uses sync.Once for
//	thread-safe initialization. Callers with a config file should use
//	LoadScaffoldConfigFile instead.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//
// Outputs:
//
//	*ScaffoldConfig - The loaded configuration. Never nil on success.
//	error - Non-nil if loading or validation failed.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetScaffoldConfig(ctx context.Context) (*ScaffoldConfig, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetScaffoldConfig: ctx must not be nil")
	}

	scaffoldConfigMu.RLock()
	if cachedScaffoldConfig != nil || scaffoldConfigLoadErr != nil {
		cfg, err := cachedScaffoldConfig, scaffoldConfigLoadErr
		scaffoldConfigMu.RUnlock()
		return cfg, err
	}
	scaffoldConfigMu.RUnlock()

	scaffoldConfigMu.Lock()
	defer scaffoldConfigMu.Unlock()

	if cachedScaffoldConfig != nil || scaffoldConfigLoadErr != nil {
		return cachedScaffoldConfig, scaffoldConfigLoadErr
	}

	scaffoldConfigOnce.Do(func() {
		cachedScaffoldConfig, scaffoldConfigLoadErr = LoadScaffoldConfig(ctx, defaultScaffoldYAML)
	})

	return cachedScaffoldConfig, scaffoldConfigLoadErr
}

// ResetScaffoldConfig resets the cached config for testing.
//
// Thread Safety: Safe for concurrent use.
func ResetScaffoldConfig() {
	scaffoldConfigMu.Lock()
	defer scaffoldConfigMu.Unlock()
	cachedScaffoldConfig = nil
	scaffoldConfigLoadErr = nil
	scaffoldConfigOnce = sync.Once{}
}

// LoadScaffoldConfigFile loads a config file from disk.
//
// Description:
//
//	Reads and parses the file at path. Unlike GetScaffoldConfig this never
//	consults the embedded defaults file; missing fields still fall back to
//	the compiled default constants during load.
func LoadScaffoldConfigFile(ctx context.Context, path string) (*ScaffoldConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadScaffoldConfigFile: reading %s: %w", path, err)
	}
	return LoadScaffoldConfig(ctx, data)
}

// LoadScaffoldConfig loads and validates a ScaffoldConfig from YAML bytes.
//
// Description:
//
//	Parses the YAML, applies defaults for missing fields, and validates the
//	result (directories set, port in range).
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes to parse.
//
// Outputs:
//
//	*ScaffoldConfig - The validated configuration.
//	error - Non-nil if parsing or validation fails.
func LoadScaffoldConfig(ctx context.Context, data []byte) (*ScaffoldConfig, error) {
	_, span := configTracer.Start(ctx, "config.LoadScaffoldConfig")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadScaffoldConfig: empty YAML data")
	}

	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadScaffoldConfig: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg ScaffoldConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("LoadScaffoldConfig: parsing YAML: %w", err)
	}

	// Apply defaults for missing fields
	if cfg.WrappersDir == "" {
		cfg.WrappersDir = DefaultWrappersDir
	}
	if cfg.BuildDir == "" {
		cfg.BuildDir = DefaultBuildDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.Cache.TTLHours <= 0 {
		cfg.Cache.TTLHours = DefaultCacheTTLHours
	}
	if cfg.Watch.DebounceMs <= 0 {
		cfg.Watch.DebounceMs = DefaultWatchDebounceMs
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.EventBuffer <= 0 {
		cfg.Server.EventBuffer = DefaultEventBuffer
	}
	if cfg.Parser.MaxFileSizeBytes <= 0 {
		cfg.Parser.MaxFileSizeBytes = DefaultMaxFileSizeBytes
	}

	if err := validateScaffoldConfig(&cfg); err != nil {
		return nil, fmt.Errorf("LoadScaffoldConfig: validation: %w", err)
	}

	span.SetAttributes(
		attribute.String("wrappers_dir", cfg.WrappersDir),
		attribute.String("build_dir", cfg.BuildDir),
		attribute.Bool("cache_enabled", cfg.Cache.Enabled),
		attribute.Int("server_port", cfg.Server.Port),
	)

	slog.Info("scaffold config loaded",
		slog.String("wrappers_dir", cfg.WrappersDir),
		slog.String("build_dir", cfg.BuildDir),
		slog.Bool("cache_enabled", cfg.Cache.Enabled),
		slog.Int("watch_debounce_ms", cfg.Watch.DebounceMs),
	)

	return &cfg, nil
}

// validateScaffoldConfig checks the loaded config for consistency.
func validateScaffoldConfig(cfg *ScaffoldConfig) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TTLHours > 24*365 {
		return fmt.Errorf("cache.ttl_hours must be at most one year, got %d", cfg.Cache.TTLHours)
	}
	if cfg.Watch.DebounceMs > 60_000 {
		return fmt.Errorf("watch.debounce_ms must be at most 60000, got %d", cfg.Watch.DebounceMs)
	}
	return nil
}
