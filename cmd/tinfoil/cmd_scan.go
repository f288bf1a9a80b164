// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ton-community/tinfoil/services/scaffold"
	"github.com/ton-community/tinfoil/services/scaffold/wrappers"
)

// Flag values for the scan command.
var (
	scanDir     string
	scanOut     string
	scanNoCache bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the wrapper directory and write the manifests",
	Long: `Scans every wrapper source in the wrappers directory, extracts each
class's operation surface, and writes wrappers.json and config.json to the
output directory.

wrappers.json is rewritten wholesale on every scan. config.json is merged:
entries for surviving wrappers keep their (possibly user-edited) values,
entries for removed wrappers are dropped, and new wrappers get defaults.

Files that fail extraction (syntax errors, missing createFromAddress) are
skipped with a warning; the scan itself still succeeds.`,
	RunE: runScanCommand,
}

func init() {
	scanCmd.Flags().StringVar(&scanDir, "dir", "", "Wrapper source directory (default: configured wrappers dir)")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "Manifest output directory (default: configured output dir)")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "Bypass the walk cache for this scan")
}

func runScanCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if scanDir != "" {
		cfg.WrappersDir = resolveDir(projectRoot, scanDir)
	}
	if scanOut != "" {
		cfg.OutputDir = resolveDir(projectRoot, scanOut)
	}
	if scanNoCache {
		cfg.Cache.Enabled = false
	}

	db, cache := openWalkCache(cfg)
	if db != nil {
		defer db.Close()
	}

	svc := scaffold.NewService(cfg, scaffold.WithExtractor(newExtractor(cfg, cache)))
	defer svc.Close()

	result, err := svc.Scan(ctx, "")
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "scan failed: %v\n", err)
		return err
	}

	printScanSummary(result, cfg.OutputDir)
	return nil
}

// printScanSummary renders the per-wrapper results and the manifest location.
func printScanSummary(result *wrappers.ScanResult, outDir string) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	for _, name := range result.Wrappers.Keys() {
		info, _ := result.Wrappers.Get(name)
		bold.Printf("  %s", name)
		fmt.Printf("  %d send, %d get", info.SendFunctions.Len(), info.GetFunctions.Len())
		if info.CanBeCreatedFromConfig {
			fmt.Print(", createFromConfig")
		}
		if info.CodeHex != "" {
			fmt.Print(", code")
		}
		fmt.Println()
	}

	for _, skip := range result.Skipped {
		yellow.Printf("  skipped %s: %s\n", skip.Path, skip.Reason)
	}

	green.Printf("%d wrapper(s) extracted", result.Wrappers.Len())
	if n := len(result.Skipped); n > 0 {
		yellow.Printf(", %d skipped", n)
	}
	fmt.Printf(" in %s\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("wrote %s and %s to %s\n", wrappers.WrappersFileName, wrappers.ConfigFileName, outDir)
}
