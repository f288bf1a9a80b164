// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command tinfoil extracts contract wrapper metadata from Blueprint-style
// TON projects.
//
// A wrapper is a TypeScript class implementing the Contract interface that
// follows the Blueprint conventions: async send*/get* methods, an optional
// <ClassName>Config type alias, and static createFromAddress /
// createFromConfig constructors. tinfoil parses those sources, derives each
// wrapper's public operation surface, and writes the wrappers.json and
// config.json manifests a dapp scaffold consumes.
//
// Usage:
//
//	tinfoil scan                      # scan wrappers/ and write manifests
//	tinfoil extract wrappers/Foo.ts   # print one wrapper's surface as JSON
//	tinfoil serve                     # HTTP API + watch mode + events
//
// Run against another project:
//
//	tinfoil -p /path/to/project scan
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ton-community/tinfoil/services/scaffold/artifacts"
	"github.com/ton-community/tinfoil/services/scaffold/ast"
	"github.com/ton-community/tinfoil/services/scaffold/config"
	badgerstore "github.com/ton-community/tinfoil/services/scaffold/storage/badger"
	"github.com/ton-community/tinfoil/services/scaffold/wrappers"
)

// Global flag values shared by all subcommands.
var (
	projectRoot string
	configPath  string
	verbose     bool
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "tinfoil",
	Short: "tinfoil - TON contract wrapper metadata extractor",
	Long: `tinfoil extracts the public operation surface of Blueprint-style TON
contract wrappers and emits the wrappers.json / config.json manifests a
dapp scaffold consumes.

Wrapper sources are TypeScript classes implementing the Contract interface.
tinfoil never executes them: the surface is derived statically from the
source, so broken imports or missing node_modules do not matter.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectRoot, "project", "p", ".", "Blueprint project root")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Scaffold config YAML (defaults are built in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the scaffold configuration and resolves its directories
// against the project root. The singleton stays untouched; each command
// works on its own copy so flag overrides do not leak between runs.
func loadConfig(ctx context.Context) (*config.ScaffoldConfig, error) {
	var (
		cfg *config.ScaffoldConfig
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadScaffoldConfigFile(ctx, configPath)
	} else {
		cfg, err = config.GetScaffoldConfig(ctx)
	}
	if err != nil {
		return nil, err
	}

	cp := *cfg
	cp.WrappersDir = resolveDir(projectRoot, cp.WrappersDir)
	cp.BuildDir = resolveDir(projectRoot, cp.BuildDir)
	cp.OutputDir = resolveDir(projectRoot, cp.OutputDir)
	return &cp, nil
}

// resolveDir anchors a relative config directory at the project root.
func resolveDir(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// openWalkCache opens the BadgerDB walk cache.
//
// Graceful degradation: a missing home directory or an unopenable database
// disables persistence with a warning instead of failing the command; every
// extraction then re-walks its source.
func openWalkCache(cfg *config.ScaffoldConfig) (*badgerstore.DB, wrappers.WalkCacheStore) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	dir := cfg.Cache.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("home directory unavailable, walk cache disabled",
				slog.String("error", err.Error()),
			)
			return nil, nil
		}
		dir = filepath.Join(home, ".tinfoil", "cache", "walks")
	}

	bcfg := badgerstore.DefaultConfig()
	bcfg.Path = dir
	db, err := badgerstore.OpenDB(bcfg)
	if err != nil {
		slog.Warn("walk cache unavailable, extractions will re-walk",
			slog.String("path", dir),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	slog.Info("walk cache opened", slog.String("path", dir))
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	return db, wrappers.NewBadgerWalkCacheStore(db, ttl, slog.Default())
}

// newExtractor assembles the extractor all commands share: configured
// parser limits, compiled-artifact lookup from the build directory, paths
// normalized relative to the project root, and the optional walk cache.
func newExtractor(cfg *config.ScaffoldConfig, cache wrappers.WalkCacheStore) *wrappers.Extractor {
	opts := []wrappers.ExtractorOption{
		wrappers.WithParser(ast.NewParser(ast.WithMaxFileSize(cfg.Parser.MaxFileSizeBytes))),
		wrappers.WithArtifactStore(artifacts.NewBuildDirStore(cfg.BuildDir)),
		wrappers.WithPathNormalizer(artifacts.NewProjectPathNormalizer(projectRoot)),
	}
	if cache != nil {
		opts = append(opts, wrappers.WithWalkCache(cache))
	}
	return wrappers.NewExtractor(opts...)
}
