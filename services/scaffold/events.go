// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"log/slog"
	"sync"
	"time"
)

// ChangeEvent describes one completed re-scan to event subscribers.
//
// Events are pushed over the /v1/scaffold/events websocket whenever a scan
// finishes, whether it was triggered by the watcher, the HTTP API, or the
// CLI running against the same service instance.
type ChangeEvent struct {
	// Type is the event kind. Currently always "scan_complete".
	Type string `json:"type"`

	// RunID ties the event back to scan log lines.
	RunID string `json:"runId"`

	// Dir is the scanned wrapper directory.
	Dir string `json:"dir"`

	// Wrappers lists the extracted contract class names in manifest order.
	Wrappers []string `json:"wrappers"`

	// Skipped is the number of candidate files the scan could not extract.
	Skipped int `json:"skipped"`

	// At is when the scan finished.
	At time.Time `json:"at"`
}

// EventTypeScanComplete is the Type of events emitted after a scan.
const EventTypeScanComplete = "scan_complete"

// EventHub fans scan events out to websocket subscribers.
//
// Description:
//
//	Each subscriber gets its own buffered channel. Publish never blocks:
//	when a subscriber's buffer is full the event is dropped for that
//	subscriber and counted, so one stalled websocket cannot hold up a
//	scan. Subscribers that fall behind see gaps, not stale backlogs.
//
// Thread Safety: All methods are safe for concurrent use.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[chan ChangeEvent]struct{}
	buffer int
	closed bool
	logger *slog.Logger
}

// NewEventHub creates a hub whose subscribers buffer up to buffer events.
// A non-positive buffer falls back to 1 so Publish stays non-blocking.
func NewEventHub(buffer int, logger *slog.Logger) *EventHub {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHub{
		subs:   make(map[chan ChangeEvent]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber and returns its event channel plus
// a cancel function. The channel is closed by cancel or by Close; callers
// must not close it themselves. Subscribing to a closed hub returns an
// already-closed channel.
func (h *EventHub) Subscribe() (<-chan ChangeEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ChangeEvent, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	h.subs[ch] = struct{}{}
	wsSubscribersGauge.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
				wsSubscribersGauge.Dec()
			}
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber that has buffer room. It never
// blocks; full subscribers are skipped and the drop is counted.
func (h *EventHub) Publish(ev ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			wsEventsDroppedTotal.Inc()
			h.logger.Warn("dropping scan event for slow subscriber",
				slog.String("run_id", ev.RunID),
			)
		}
	}
}

// Close shuts the hub down and closes every subscriber channel. Further
// Publish calls are no-ops and further Subscribe calls return closed
// channels. Safe to call more than once.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for ch := range h.subs {
		close(ch)
		wsSubscribersGauge.Dec()
	}
	h.subs = make(map[chan ChangeEvent]struct{})
}

// SubscriberCount reports the number of live subscribers.
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
