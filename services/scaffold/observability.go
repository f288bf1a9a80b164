// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// serviceTracerName is the OTel tracer name for service-level operations.
const serviceTracerName = "scaffold.service"

// Package-level Prometheus metrics for the service layer: the watcher and
// the websocket event fan-out. Extraction and scan internals are measured
// in the wrappers package.
var (
	// watchEventsTotal counts filesystem events the watcher accepted.
	//
	// Labels:
	//   - op: "create", "write", "remove", or "rename"
	watchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "watch",
			Name:      "events_total",
			Help:      "Total number of wrapper-source filesystem events.",
		},
		[]string{"op"},
	)

	// watchRescansTotal counts debounced re-scans the watcher triggered.
	watchRescansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "watch",
			Name:      "rescans_total",
			Help:      "Total number of watch-triggered directory re-scans.",
		},
	)

	// wsSubscribersGauge tracks live websocket event subscribers.
	wsSubscribersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scaffold",
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Current number of scan-event subscribers.",
		},
	)

	// wsEventsDroppedTotal counts events dropped for slow subscribers.
	wsEventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total number of scan events dropped for slow subscribers.",
		},
	)
)

// startServiceScanSpan opens a span covering scan plus manifest emission.
func startServiceScanSpan(ctx context.Context, dir string) (context.Context, oteltrace.Span) {
	return otel.Tracer(serviceTracerName).Start(ctx, "scaffold.Scan",
		oteltrace.WithAttributes(
			attribute.String("dir", dir),
		),
	)
}

// markSpanOK marks a span as successful.
func markSpanOK(span oteltrace.Span) {
	span.SetStatus(codes.Ok, "")
}

// markSpanError records err on the span and marks it failed.
func markSpanError(span oteltrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
