// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"context"
	"testing"
	"time"
)

// startTestWatcher wires a Watcher to svc and tears it down with the test.
func startTestWatcher(t *testing.T, svc *Service) *Watcher {
	t.Helper()

	w, err := NewWatcher(svc)
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("starting watcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_RescansAfterWrapperChange(t *testing.T) {
	svc := setupTestService(t)
	events, cancel := svc.Hub().Subscribe()
	defer cancel()

	startTestWatcher(t, svc)

	writeWrapper(t, svc.Config().WrappersDir, "Counter.ts", counterSource)

	select {
	case ev := <-events:
		if ev.Type != EventTypeScanComplete {
			t.Errorf("type = %q, want %q", ev.Type, EventTypeScanComplete)
		}
		if len(ev.Wrappers) != 1 || ev.Wrappers[0] != "Counter" {
			t.Errorf("wrappers = %v, want [Counter]", ev.Wrappers)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no scan event within 10s of a wrapper write")
	}

	if svc.LastScan() == nil {
		t.Error("last scan not recorded")
	}
}

func TestWatcher_BatchesRapidWrites(t *testing.T) {
	svc := setupTestService(t)
	events, cancel := svc.Hub().Subscribe()
	defer cancel()

	startTestWatcher(t, svc)

	// A burst of saves inside one debounce window collapses into one scan.
	writeWrapper(t, svc.Config().WrappersDir, "Counter.ts", counterSource)
	writeWrapper(t, svc.Config().WrappersDir, "Other.ts", counterSource)

	select {
	case ev := <-events:
		// Other.ts declares class Counter, not Other, so it is skipped;
		// both files were still part of the same scan.
		if len(ev.Wrappers) != 1 || ev.Wrappers[0] != "Counter" {
			t.Errorf("wrappers = %v, want [Counter]", ev.Wrappers)
		}
		if ev.Skipped != 1 {
			t.Errorf("skipped = %d, want 1", ev.Skipped)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no scan event within 10s of wrapper writes")
	}
}

func TestWatcher_IgnoresNonWrapperFiles(t *testing.T) {
	svc := setupTestService(t)
	startTestWatcher(t, svc)

	writeWrapper(t, svc.Config().WrappersDir, "README.md", "# notes\n")
	writeWrapper(t, svc.Config().WrappersDir, "types.d.ts", "export type T = {};\n")

	// Several debounce windows of quiet; nothing should have scanned.
	time.Sleep(500 * time.Millisecond)

	if svc.LastScan() != nil {
		t.Error("scan triggered by a non-wrapper file")
	}
}

func TestWatcher_StartTwiceAndStopTwice(t *testing.T) {
	svc := setupTestService(t)

	w, err := NewWatcher(svc)
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("starting watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}

	w.Stop()
	w.Stop()
}

func TestWatcher_StopBeforeStart(t *testing.T) {
	svc := setupTestService(t)

	w, err := NewWatcher(svc)
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	w.Stop()
}

func TestWatcher_StartFailsOnMissingDir(t *testing.T) {
	svc := setupTestService(t)
	svc.Config().WrappersDir = svc.Config().WrappersDir + "/missing"

	w, err := NewWatcher(svc)
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err == nil {
		t.Error("expected an error watching a missing directory")
	}
}
