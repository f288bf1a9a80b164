// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package wrappers

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// wrappersTracerName is the OTel tracer name for extraction operations.
const wrappersTracerName = "scaffold.wrappers"

// Package-level Prometheus metrics for wrapper extraction.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// extractDuration measures the duration of single-wrapper extractions.
	//
	// Labels:
	//   - status: "success" or "error"
	extractDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scaffold",
			Subsystem: "wrappers",
			Name:      "extract_duration_seconds",
			Help:      "Duration of wrapper extractions in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"status"},
	)

	// extractionsTotal counts extraction calls.
	//
	// Labels:
	//   - status: "success" or "error"
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "wrappers",
			Name:      "extractions_total",
			Help:      "Total number of wrapper extractions.",
		},
		[]string{"status"},
	)

	// walkCacheHitsTotal counts walk results served from the badger cache.
	walkCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "wrappers",
			Name:      "walk_cache_hits_total",
			Help:      "Total number of walk-cache hits.",
		},
	)

	// walkCacheMissesTotal counts extractions that had to re-walk the tree.
	walkCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "wrappers",
			Name:      "walk_cache_misses_total",
			Help:      "Total number of walk-cache misses.",
		},
	)

	// scanDuration measures the duration of whole-directory scans.
	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scaffold",
			Subsystem: "wrappers",
			Name:      "scan_duration_seconds",
			Help:      "Duration of wrapper directory scans in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// scanFilesTotal counts per-file outcomes during directory scans.
	//
	// Labels:
	//   - result: "extracted" or "skipped"
	scanFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "wrappers",
			Name:      "scan_files_total",
			Help:      "Total number of files considered by directory scans.",
		},
		[]string{"result"},
	)
)

// startExtractSpan opens an OTel span for one extraction call.
func startExtractSpan(ctx context.Context, path, className string) (context.Context, oteltrace.Span) {
	return otel.Tracer(wrappersTracerName).Start(ctx, "wrappers.Extract",
		oteltrace.WithAttributes(
			attribute.String("file", path),
			attribute.String("class", className),
		),
	)
}

// startScanSpan opens an OTel span for one directory scan.
func startScanSpan(ctx context.Context, dir, runID string) (context.Context, oteltrace.Span) {
	return otel.Tracer(wrappersTracerName).Start(ctx, "wrappers.ScanDirectory",
		oteltrace.WithAttributes(
			attribute.String("dir", dir),
			attribute.String("run_id", runID),
		),
	)
}

// setScanSpanResult records the per-file outcomes on a scan span.
func setScanSpanResult(span oteltrace.Span, extracted, skipped int) {
	span.SetAttributes(
		attribute.Int("extracted", extracted),
		attribute.Int("skipped", skipped),
	)
	span.SetStatus(codes.Ok, "")
}

// setExtractSpanResult records the extracted surface on a successful span.
func setExtractSpanResult(span oteltrace.Span, info *WrapperInfo, cacheHit bool) {
	span.SetAttributes(
		attribute.Int("send_ops", info.SendFunctions.Len()),
		attribute.Int("get_ops", info.GetFunctions.Len()),
		attribute.Bool("from_config", info.CanBeCreatedFromConfig),
		attribute.Bool("code_hex", info.CodeHex != ""),
		attribute.Bool("cache_hit", cacheHit),
	)
	span.SetStatus(codes.Ok, "")
}

// recordExtractMetrics records Prometheus metrics for a completed extraction.
func recordExtractMetrics(duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	extractDuration.WithLabelValues(status).Observe(duration.Seconds())
	extractionsTotal.WithLabelValues(status).Inc()
}
