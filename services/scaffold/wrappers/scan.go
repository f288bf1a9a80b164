// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package wrappers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// scanConcurrency bounds parallel per-file extractions during a scan.
// Parsing is CPU-bound and short; a small fan-out keeps latency low
// without starving the rest of the process.
const scanConcurrency = 8

// SkippedFile records one file a scan could not extract, and why.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ScanResult is the outcome of one directory scan.
//
// Description:
//
//	Wrappers holds the extracted manifest in deterministic (filename)
//	order. Skipped lists the files that looked like wrapper sources but
//	failed the conventions; a scan only fails outright when the directory
//	itself cannot be listed or the context is canceled.
type ScanResult struct {
	// RunID identifies this scan in logs and change events.
	RunID string `json:"runId"`

	// Wrappers maps class name to extracted surface, in filename order.
	Wrappers *WrappersData `json:"wrappers"`

	// Skipped lists files that were considered but not extracted.
	Skipped []SkippedFile `json:"skipped,omitempty"`

	// Duration is the wall time of the scan.
	Duration time.Duration `json:"-"`
}

// ScanDirectory extracts every wrapper source in dir.
//
// Description:
//
//	Candidate files are non-directory entries ending in .ts, excluding
//	.d.ts declarations and .spec.ts/.test.ts test files. The contract
//	class name is inferred from the file stem, which must be a valid
//	identifier. Files are extracted in parallel (bounded) and assembled
//	in filename order, so repeated scans of an unchanged directory yield
//	identical manifests. Per-file failures (syntax errors, missing
//	capabilities, unreadable files) skip the file with a warning.
//
// Inputs:
//
//	ctx - Context for cancellation; aborts the whole scan.
//	dir - Directory holding wrapper .ts sources.
//
// Outputs:
//
//	*ScanResult - Extracted wrappers plus the skip list. Nil on error.
//	error - Non-nil if the directory cannot be listed or ctx is canceled.
//
// Thread Safety: Safe for concurrent use.
func (e *Extractor) ScanDirectory(ctx context.Context, dir string) (*ScanResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := startScanSpan(ctx, dir, runID)
	defer span.End()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("wrappers.ScanDirectory: listing %s: %w", dir, err)
	}

	// ReadDir returns entries sorted by filename; that ordering carries
	// through to the manifest.
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsWrapperSource(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}

	infos := make([]*WrapperInfo, len(files))
	skips := make([]*SkippedFile, len(files))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, scanConcurrency)

	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			path := filepath.Join(dir, name)
			className := strings.TrimSuffix(name, ".ts")

			if !isValidClassName(className) {
				e.logger.Warn("skipping wrapper file: stem is not a class identifier",
					slog.String("run_id", runID),
					slog.String("file", path),
				)
				skips[i] = &SkippedFile{Path: path, Reason: "file stem is not a valid class identifier"}
				return nil
			}

			info, err := e.Extract(gctx, path, className)
			if err != nil {
				// Individual failure is not fatal; the scan continues.
				e.logger.Warn("skipping wrapper file: extraction failed",
					slog.String("run_id", runID),
					slog.String("file", path),
					slog.String("error", err.Error()),
				)
				skips[i] = &SkippedFile{Path: path, Reason: err.Error()}
				return nil
			}

			infos[i] = info
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("wrappers.ScanDirectory: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ScanResult{
		RunID:    runID,
		Wrappers: NewWrappersData(),
		Duration: time.Since(start),
	}
	for i, name := range files {
		if infos[i] != nil {
			result.Wrappers.Set(strings.TrimSuffix(name, ".ts"), infos[i])
			scanFilesTotal.WithLabelValues("extracted").Inc()
			continue
		}
		if skips[i] != nil {
			result.Skipped = append(result.Skipped, *skips[i])
			scanFilesTotal.WithLabelValues("skipped").Inc()
		}
	}

	scanDuration.Observe(result.Duration.Seconds())
	setScanSpanResult(span, result.Wrappers.Len(), len(result.Skipped))

	e.logger.Info("wrapper scan complete",
		slog.String("run_id", runID),
		slog.String("dir", dir),
		slog.Int("extracted", result.Wrappers.Len()),
		slog.Int("skipped", len(result.Skipped)),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// IsWrapperSource reports whether a filename looks like a wrapper source:
// a .ts file that is neither a declaration file nor a test. The watcher
// uses the same rule to decide which filesystem events matter.
func IsWrapperSource(name string) bool {
	if !strings.HasSuffix(name, ".ts") {
		return false
	}
	for _, suffix := range []string{".d.ts", ".spec.ts", ".test.ts"} {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return true
}

// isValidClassName reports whether s is a plausible class identifier:
// a letter, underscore, or dollar sign followed by letters, digits,
// underscores, or dollar signs.
func isValidClassName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if unicode.IsLetter(r) || r == '_' || r == '$' {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
