// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package wrappers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Manifest filenames, fixed by the dapp tooling that consumes them.
const (
	WrappersFileName = "wrappers.json"
	ConfigFileName   = "config.json"
)

// manifestIndent matches the formatting of the consuming dapp projects, so
// committed manifests do not churn under their formatters.
const manifestIndent = "    "

// EmitManifests writes wrappers.json and config.json into outDir.
//
// Description:
//
//	wrappers.json is replaced wholesale: it is derived output. config.json
//	carries user edits (tab names, default addresses), so it is merged:
//	existing entries for still-present wrappers survive untouched, new
//	wrappers are appended with defaults, and entries for removed wrappers
//	are dropped. A malformed existing config.json fails the emit rather
//	than clobbering the user's file.
//
// Inputs:
//
//	outDir - Directory to write into. Must exist.
//	data - Scanned wrappers manifest.
//	logger - Logger for emit diagnostics. May be nil.
//
// Outputs:
//
//	error - Non-nil on marshal, read, or write failure.
//
// Thread Safety: Not safe for concurrent emits into the same directory.
func EmitManifests(outDir string, data *WrappersData, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	wrappersPath := filepath.Join(outDir, WrappersFileName)
	if err := writeManifest(wrappersPath, data); err != nil {
		return fmt.Errorf("wrappers.EmitManifests: %w", err)
	}

	configPath := filepath.Join(outDir, ConfigFileName)
	existing, err := readConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("wrappers.EmitManifests: %w", err)
	}

	merged := MergeConfig(existing, data)
	if err := writeManifest(configPath, merged); err != nil {
		return fmt.Errorf("wrappers.EmitManifests: %w", err)
	}

	logger.Info("manifests written",
		slog.String("dir", outDir),
		slog.Int("wrappers", data.Len()),
	)
	return nil
}

// MergeConfig reconciles an existing config.json with a fresh scan.
//
// Existing entries for wrappers still present keep their position and
// content (user edits survive). Wrappers new to this scan are appended in
// scan order with a default tab name. Entries for wrappers that no longer
// exist are dropped.
func MergeConfig(existing *ConfigData, wrappers *WrappersData) *ConfigData {
	merged := NewConfigData()

	if existing != nil {
		for _, name := range existing.Keys() {
			if _, ok := wrappers.Get(name); !ok {
				continue
			}
			entry, _ := existing.Get(name)
			merged.Set(name, entry)
		}
	}

	for _, name := range wrappers.Keys() {
		if _, ok := merged.Get(name); ok {
			continue
		}
		merged.Set(name, ConfigEntry{TabName: name})
	}

	return merged
}

// readConfigFile loads an existing config.json. A missing file is an empty
// config; a malformed file is an error (never overwrite what we cannot read).
func readConfigFile(path string) (*ConfigData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewConfigData(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	config := NewConfigData()
	if err := json.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return config, nil
}

// writeManifest marshals v indented and writes it with a trailing newline.
func writeManifest(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", manifestIndent)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	raw = append(raw, '\n')

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
