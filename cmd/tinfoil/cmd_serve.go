// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ton-community/tinfoil/services/scaffold"
)

// Flag values for the serve command.
var (
	servePort        int
	serveDebug       bool
	serveTraceStdout bool
	serveNoWatch     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scaffold HTTP API with watch mode",
	Long: `Starts the scaffold server: the /v1/scaffold HTTP API, Prometheus
metrics on /metrics, and a websocket event stream on /v1/scaffold/events.

Unless --no-watch is given, the wrappers directory is watched and every
settled change re-scans it, rewrites the manifests, and pushes a
scan_complete event to connected subscribers.`,
	RunE: runServeCommand,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP listen port (default: configured port)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable Gin debug mode and request logging")
	serveCmd.Flags().BoolVar(&serveTraceStdout, "trace-stdout", false, "Export OTel spans to stdout")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Disable filesystem watching")
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so spans correlate across callers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var tp *sdktrace.TracerProvider
	if serveTraceStdout {
		exporter, expErr := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if expErr != nil {
			slog.Warn("stdout span exporter unavailable, spans stay unexported",
				slog.String("error", expErr.Error()),
			)
		} else {
			tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
			otel.SetTracerProvider(tp)
		}
	}

	db, cache := openWalkCache(cfg)

	svc := scaffold.NewService(cfg, scaffold.WithExtractor(newExtractor(cfg, cache)))
	handlers := scaffold.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("tinfoil-scaffold"))
	if serveDebug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	scaffold.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Initial scan so the manifests match the sources before any watch or
	// API activity. A failure (say, the wrappers dir does not exist yet)
	// is logged and the server still comes up.
	if _, err := svc.Scan(ctx, ""); err != nil {
		slog.Warn("initial scan failed",
			slog.String("dir", cfg.WrappersDir),
			slog.String("error", err.Error()),
		)
	}

	var watcher *scaffold.Watcher
	if !serveNoWatch {
		w, werr := scaffold.NewWatcher(svc)
		if werr != nil {
			slog.Warn("filesystem watcher unavailable, watch mode disabled",
				slog.String("error", werr.Error()),
			)
		} else if werr := w.Start(ctx); werr != nil {
			slog.Warn("watch failed to start, watch mode disabled",
				slog.String("dir", cfg.WrappersDir),
				slog.String("error", werr.Error()),
			)
			w.Stop()
		} else {
			watcher = w
		}
	}

	printServeBanner(cfg.Server.Port, cfg.WrappersDir, watcher != nil)

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("shutting down scaffold server")
		if watcher != nil {
			watcher.Stop()
		}
		svc.Close()
		if tp != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := tp.Shutdown(shutdownCtx); err != nil {
				slog.Warn("span exporter shutdown failed", slog.String("error", err.Error()))
			}
			cancel()
		}
		if db != nil {
			if err := db.Close(); err != nil {
				slog.Warn("walk cache close failed", slog.String("error", err.Error()))
			}
		}
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("starting scaffold server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

func printServeBanner(port int, wrappersDir string, watching bool) {
	watchStatus := "DISABLED"
	if watching {
		watchStatus = "ENABLED"
	}

	banner := `
╔════════════════════════════════════════════════════════════╗
║                   TINFOIL SCAFFOLD SERVER                  ║
╠════════════════════════════════════════════════════════════╣
║  Wrapper metadata extraction for Blueprint TON projects.   ║
║                                                            ║
║  Watch mode: %-8s                                      ║
║                                                            ║
║  Endpoints:                                                ║
║  ├── POST /v1/scaffold/extract  one wrapper as JSON        ║
║  ├── POST /v1/scaffold/scan     re-scan + rewrite manifests║
║  ├── GET  /v1/scaffold/events   websocket scan events      ║
║  ├── GET  /v1/scaffold/health   health check               ║
║  └── GET  /metrics              Prometheus metrics         ║
║                                                            ║
║  Press Ctrl+C to stop                                      ║
╚════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, watchStatus)
	fmt.Printf("listening on :%d, watching %s\n", port, wrappersDir)
}
