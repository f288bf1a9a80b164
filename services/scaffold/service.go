// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ton-community/tinfoil/services/scaffold/config"
	"github.com/ton-community/tinfoil/services/scaffold/wrappers"
)

// Service is the scaffold service: wrapper extraction, directory scans,
// manifest emission, and scan-event fan-out behind one facade shared by
// the HTTP handlers, the watcher, and the CLI.
//
// Thread Safety: All methods are safe for concurrent use.
type Service struct {
	cfg       *config.ScaffoldConfig
	extractor *wrappers.Extractor
	hub       *EventHub
	logger    *slog.Logger
	startedAt time.Time

	mu       sync.RWMutex
	lastScan *ScanSummary
}

// ScanSummary is the retained record of the most recent scan, reported by
// the health endpoint and used by tests to observe watcher activity.
type ScanSummary struct {
	RunID      string    `json:"runId"`
	Dir        string    `json:"dir"`
	Extracted  int       `json:"extracted"`
	Skipped    int       `json:"skipped"`
	DurationMs int64     `json:"durationMs"`
	FinishedAt time.Time `json:"finishedAt"`
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithExtractor replaces the default extractor. Used to inject fakes in
// tests and to share one extractor (and its walk cache) across components.
func WithExtractor(e *wrappers.Extractor) ServiceOption {
	return func(s *Service) { s.extractor = e }
}

// WithServiceLogger replaces slog.Default().
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service around cfg.
//
// The default extractor has no walk cache and no artifact store; callers
// that want those wire them via WithExtractor. The event hub buffers
// cfg.Server.EventBuffer events per subscriber.
func NewService(cfg *config.ScaffoldConfig, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:       cfg,
		logger:    slog.Default(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = wrappers.NewExtractor(wrappers.WithLogger(s.logger))
	}
	s.hub = NewEventHub(cfg.Server.EventBuffer, s.logger)
	return s
}

// Extract extracts a single wrapper. See wrappers.Extractor.Extract for
// the error taxonomy.
func (s *Service) Extract(ctx context.Context, path, className string) (*wrappers.WrapperInfo, error) {
	return s.extractor.Extract(ctx, path, className)
}

// Scan scans dir, writes wrappers.json and config.json to the configured
// output directory, records the run, and notifies event subscribers.
//
// Description:
//
//	An empty dir falls back to the configured wrappers directory. The
//	manifests are only written when the scan itself succeeds; a manifest
//	write failure fails the whole call even though extraction finished.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	dir - Wrapper source directory, or "" for the configured default.
//
// Outputs:
//
//	*wrappers.ScanResult - Extracted wrappers plus skip list. Nil on error.
//	error - Non-nil if the scan or the manifest write failed.
func (s *Service) Scan(ctx context.Context, dir string) (*wrappers.ScanResult, error) {
	if dir == "" {
		dir = s.cfg.WrappersDir
	}

	ctx, span := startServiceScanSpan(ctx, dir)
	defer span.End()

	result, err := s.extractor.ScanDirectory(ctx, dir)
	if err != nil {
		markSpanError(span, err)
		return nil, err
	}

	if err := wrappers.EmitManifests(s.cfg.OutputDir, result.Wrappers, s.logger); err != nil {
		markSpanError(span, err)
		return nil, fmt.Errorf("scaffold: writing manifests: %w", err)
	}

	summary := &ScanSummary{
		RunID:      result.RunID,
		Dir:        dir,
		Extracted:  result.Wrappers.Len(),
		Skipped:    len(result.Skipped),
		DurationMs: result.Duration.Milliseconds(),
		FinishedAt: time.Now(),
	}
	s.mu.Lock()
	s.lastScan = summary
	s.mu.Unlock()

	s.hub.Publish(ChangeEvent{
		Type:     EventTypeScanComplete,
		RunID:    result.RunID,
		Dir:      dir,
		Wrappers: result.Wrappers.Keys(),
		Skipped:  len(result.Skipped),
		At:       summary.FinishedAt,
	})
	markSpanOK(span)

	return result, nil
}

// LastScan returns a copy of the most recent scan record, or nil if the
// service has not scanned yet.
func (s *Service) LastScan() *ScanSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastScan == nil {
		return nil
	}
	cp := *s.lastScan
	return &cp
}

// Hub returns the scan-event hub.
func (s *Service) Hub() *EventHub {
	return s.hub
}

// Config returns the service configuration.
func (s *Service) Config() *config.ScaffoldConfig {
	return s.cfg
}

// Uptime reports how long the service has been running.
func (s *Service) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

// Close shuts the event hub down, disconnecting all subscribers.
func (s *Service) Close() {
	s.hub.Close()
}
