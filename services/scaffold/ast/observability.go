// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

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

// parserTracerName is the OTel tracer name for parser operations.
const parserTracerName = "scaffold.ast"

// Package-level Prometheus metrics for parser operations.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// parseDuration measures the duration of source file parses.
	//
	// Labels:
	//   - status: "success" or "error"
	parseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scaffold",
			Subsystem: "ast",
			Name:      "parse_duration_seconds",
			Help:      "Duration of TypeScript source parses in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"status"},
	)

	// parsesTotal counts the total number of parse calls.
	//
	// Labels:
	//   - status: "success" or "error"
	parsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "ast",
			Name:      "parses_total",
			Help:      "Total number of TypeScript source parses.",
		},
		[]string{"status"},
	)

	// syntaxErrorsTotal counts parses rejected for syntax errors.
	syntaxErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "ast",
			Name:      "syntax_errors_total",
			Help:      "Total number of parses rejected for syntax errors.",
		},
	)
)

// startParseSpan opens an OTel span for one parse call.
func startParseSpan(ctx context.Context, filePath string, sizeBytes int) (context.Context, oteltrace.Span) {
	return otel.Tracer(parserTracerName).Start(ctx, "ast.Parse",
		oteltrace.WithAttributes(
			attribute.String("file", filePath),
			attribute.Int("size_bytes", sizeBytes),
		),
	)
}

// setParseSpanResult records the extraction counts on a successful parse span.
func setParseSpanResult(span oteltrace.Span, classes, aliases int) {
	span.SetAttributes(
		attribute.Int("classes", classes),
		attribute.Int("aliases", aliases),
	)
	span.SetStatus(codes.Ok, "")
}

// recordParseMetrics records Prometheus metrics for a completed parse call.
func recordParseMetrics(duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	parseDuration.WithLabelValues(status).Observe(duration.Seconds())
	parsesTotal.WithLabelValues(status).Inc()
}
