// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ton-community/tinfoil/services/scaffold/ast"
	"github.com/ton-community/tinfoil/services/scaffold/wrappers"
)

// extractClass overrides the class name inferred from the file stem.
var extractClass string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract one wrapper's operation surface as JSON",
	Long: `Extracts a single wrapper source and prints its WrapperInfo to stdout.

The contract class name defaults to the file stem (wrappers/Foo.ts holds
class Foo); pass --class when the file breaks that convention.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtractCommand,
}

func init() {
	extractCmd.Flags().StringVar(&extractClass, "class", "", "Contract class name (default: file stem)")
}

func runExtractCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	path := args[0]
	className := extractClass
	if className == "" {
		className = strings.TrimSuffix(filepath.Base(path), ".ts")
	}

	db, cache := openWalkCache(cfg)
	if db != nil {
		defer db.Close()
	}

	info, err := newExtractor(cfg, cache).Extract(ctx, path, className)
	if err != nil {
		reportExtractError(err)
		return err
	}

	out, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding wrapper info: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// reportExtractError prints a readable diagnosis before cobra prints the
// bare error. Syntax errors get their per-location diagnostics; convention
// violations get a hint about what the class is missing.
func reportExtractError(err error) {
	red := color.New(color.FgRed)

	var synErr *ast.SyntaxError
	if errors.As(err, &synErr) {
		red.Fprintf(os.Stderr, "%s does not parse:\n", synErr.Path)
		for _, d := range synErr.Diagnostics {
			fmt.Fprintf(os.Stderr, "  %s\n", d.String())
		}
		if synErr.Truncated {
			fmt.Fprintln(os.Stderr, "  (more diagnostics omitted)")
		}
		return
	}

	var capErr *wrappers.MissingCapabilityError
	if errors.As(err, &capErr) {
		red.Fprintf(os.Stderr, "class %s is not a usable wrapper\n", capErr.Class)
		fmt.Fprintln(os.Stderr, "a wrapper must implement Contract and declare a static createFromAddress")
	}
}
