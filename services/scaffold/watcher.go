// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ton-community/tinfoil/services/scaffold/wrappers"
)

// settleTick is how often the watcher checks for events that have been
// quiet past the debounce window.
const settleTick = 100 * time.Millisecond

// Watcher re-scans the wrapper directory when its .ts sources change.
//
// Description:
//
//	Filesystem events for wrapper sources are debounced per path: an
//	editor save burst or a toolchain writing several files produces one
//	re-scan, not one per write. Because the manifests cover the whole
//	directory, any settled change triggers a full Service.Scan, which
//	re-emits the manifests and notifies event subscribers.
//
// Thread Safety: Start and Stop are safe for concurrent use.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	svc      *Service
	dir      string
	debounce time.Duration
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	logger   *slog.Logger
}

// NewWatcher creates a Watcher over the service's configured wrappers
// directory. The debounce window comes from the watch configuration.
func NewWatcher(svc *Service) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	cfg := svc.Config()
	return &Watcher{
		watcher:  fw,
		svc:      svc,
		dir:      cfg.WrappersDir,
		debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   svc.logger,
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine
// until Stop is called or ctx is canceled. Starting twice is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.logger.Info("watching wrapper directory",
		slog.String("dir", w.dir),
		slog.Duration("debounce", w.debounce),
	)

	go w.run(ctx)
	return nil
}

// Stop stops the event loop and releases the underlying watcher. Safe to
// call before Start or more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn("closing filesystem watcher", slog.String("error", err.Error()))
		}
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("closing filesystem watcher", slog.String("error", err.Error()))
	}
	w.logger.Info("wrapper watcher stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(settleTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

// handleEvent records one filesystem event for debounced processing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !wrappers.IsWrapperSource(filepath.Base(event.Name)) {
		return
	}

	var op string
	switch {
	case event.Op&fsnotify.Create != 0:
		op = "create"
	case event.Op&fsnotify.Write != 0:
		op = "write"
	case event.Op&fsnotify.Remove != 0:
		op = "remove"
	case event.Op&fsnotify.Rename != 0:
		op = "rename"
	default:
		// Chmod and friends do not change wrapper surfaces.
		return
	}

	watchEventsTotal.WithLabelValues(op).Inc()
	w.logger.Debug("wrapper source changed",
		slog.String("file", event.Name),
		slog.String("op", op),
	)

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// processSettled triggers one re-scan once every recorded event has been
// quiet for at least the debounce window. Waiting for the whole batch
// keeps a multi-file save from scanning twice.
func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, at := range w.pending {
		if now.Sub(at) < w.debounce {
			w.mu.Unlock()
			return
		}
	}
	settled := len(w.pending)
	w.pending = make(map[string]time.Time)
	w.mu.Unlock()

	watchRescansTotal.Inc()
	w.logger.Info("wrapper changes settled, re-scanning",
		slog.Int("changed_files", settled),
		slog.String("dir", w.dir),
	)

	if _, err := w.svc.Scan(ctx, w.dir); err != nil {
		w.logger.Warn("watch-triggered scan failed",
			slog.String("dir", w.dir),
			slog.String("error", err.Error()),
		)
	}
}
