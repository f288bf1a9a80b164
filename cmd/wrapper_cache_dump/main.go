// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// wrapper_cache_dump inspects the scaffold walk cache.
//
// The walk cache persists wrapper walk results (extracted operation tables
// and capability flags) in BadgerDB between runs, keyed by a SHA256 of the
// source bytes and class name. This tool opens the cache read-only and
// prints a human-readable summary: keys, TTL remaining, entry sizes, and
// the cached surface of each wrapper.
//
// Usage:
//
//	wrapper_cache_dump [--path /path/to/walk/cache]
//
// If --path is not given, reads TINFOIL_CACHE_DIR from the environment,
// falling back to ~/.tinfoil/cache/walks/.
//
// Exit codes:
//
//	0 — success (including "empty cache" which prints a message and exits 0)
//	1 — error opening or reading the database
package main

import (
	"bytes"
	"encoding/gob"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/ton-community/tinfoil/services/scaffold/wrappers"
)

// walkCacheKeyPrefix must match cache.go exactly.
const walkCacheKeyPrefix = "scaffold/walk/v1/"

func main() {
	pathFlag := flag.String("path", "", "Path to walk-cache BadgerDB directory (overrides TINFOIL_CACHE_DIR env var)")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = os.Getenv("TINFOIL_CACHE_DIR")
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatalf("cannot resolve home directory: %v", err)
		}
		dbPath = filepath.Join(home, ".tinfoil", "cache", "walks")
	}

	fmt.Printf("Walk cache path: %s\n", dbPath)

	// Check existence before trying to open — gives a cleaner error message
	// than BadgerDB's "no such file or directory" buried in a long error.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("Cache directory does not exist. No extraction has populated the cache yet.")
		fmt.Println("Run `tinfoil scan` or `tinfoil serve` with caching enabled to populate it.")
		os.Exit(0)
	}

	opts := dgbadger.DefaultOptions(dbPath).
		WithLogger(nil). // suppress BadgerDB internal logs
		WithReadOnly(true)

	db, err := dgbadger.Open(opts)
	if err != nil {
		fatalf("open BadgerDB at %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	// Collect all entries under the walk key prefix.
	type entry struct {
		key       string
		walkKey   string
		expiresAt time.Time
		hasExpiry bool
		walk      *wrappers.CachedWalk
		rawSize   int
		decodeErr error
	}

	var entries []entry

	err = db.View(func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(walkCacheKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())

			var e entry
			e.key = key
			e.walkKey = strings.TrimPrefix(key, walkCacheKeyPrefix)

			// TTL: item.ExpiresAt() returns Unix seconds, 0 = no expiry.
			if expiresAt := item.ExpiresAt(); expiresAt > 0 {
				e.hasExpiry = true
				e.expiresAt = time.Unix(int64(expiresAt), 0)
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				e.decodeErr = fmt.Errorf("copy value: %w", err)
				entries = append(entries, e)
				continue
			}
			e.rawSize = len(raw)

			walk, err := gobDecode(raw)
			if err != nil {
				e.decodeErr = fmt.Errorf("gob decode: %w", err)
			} else {
				e.walk = walk
			}

			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		fatalf("read BadgerDB: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("\nNo walk cache entries found.")
		fmt.Println("The cache is open but empty; entries appear after the first extraction")
		fmt.Println("and expire after their TTL.")
		os.Exit(0)
	}

	fmt.Printf("\nFound %d walk cache entr%s:\n", len(entries), plural(len(entries), "y", "ies"))
	fmt.Println(strings.Repeat("─", 80))

	for i, e := range entries {
		fmt.Printf("\n[%d] Key:      %s\n", i+1, e.key)
		fmt.Printf("    Walk key: %s\n", e.walkKey)

		if e.hasExpiry {
			remaining := time.Until(e.expiresAt)
			if remaining < 0 {
				fmt.Printf("    TTL:      EXPIRED (%s ago)\n", (-remaining).Round(time.Second))
			} else {
				fmt.Printf("    TTL:      %s remaining (expires %s)\n",
					remaining.Round(time.Second),
					e.expiresAt.Format("2006-01-02 15:04:05 MST"),
				)
			}
		} else {
			fmt.Printf("    TTL:      no expiry set\n")
		}

		fmt.Printf("    Raw size: %s\n", formatBytes(e.rawSize))

		if e.decodeErr != nil {
			fmt.Printf("    DECODE ERROR: %v\n", e.decodeErr)
			continue
		}

		printWalk(e.walk)
	}

	fmt.Printf("\n%s\n", strings.Repeat("─", 80))
	fmt.Printf("Summary: %d entr%s, cache path: %s\n",
		len(entries), plural(len(entries), "y", "ies"), dbPath)
}

// printWalk renders one cached walk's surface.
func printWalk(walk *wrappers.CachedWalk) {
	fmt.Printf("    Surface:  %d send, %d get", opCount(walk.SendFunctions), opCount(walk.GetFunctions))
	caps := make([]string, 0, 2)
	if walk.CreateFromAddress {
		caps = append(caps, "createFromAddress")
	}
	if walk.CreateFromConfig {
		caps = append(caps, "createFromConfig")
	}
	if len(caps) == 0 {
		fmt.Print(", no capabilities (negative entry)")
	} else {
		fmt.Printf(", %s", strings.Join(caps, "+"))
	}
	fmt.Println()

	if walk.SendFunctions != nil {
		for _, name := range walk.SendFunctions.Keys() {
			params, _ := walk.SendFunctions.Get(name)
			fmt.Printf("      send %-24s %d param(s)\n", name, params.Len())
		}
	}
	if walk.GetFunctions != nil {
		for _, name := range walk.GetFunctions.Keys() {
			params, _ := walk.GetFunctions.Get(name)
			fmt.Printf("      get  %-24s %d param(s)\n", name, params.Len())
		}
	}
	if walk.ConfigType != nil {
		fmt.Printf("      config type: %d field(s)\n", walk.ConfigType.Len())
	}
}

// opCount is nil-safe: negative entries may carry nil tables.
func opCount(t *wrappers.OperationTable) int {
	if t == nil {
		return 0
	}
	return t.Len()
}

// gobDecode deserializes a CachedWalk from gob-encoded bytes.
// Must match cache.go exactly.
func gobDecode(data []byte) (*wrappers.CachedWalk, error) {
	var walk wrappers.CachedWalk
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&walk); err != nil {
		return nil, err
	}
	return &walk, nil
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB (%d bytes)", float64(n)/1024/1024, n)
	case n >= 1024:
		return fmt.Sprintf("%.1f KB (%d bytes)", float64(n)/1024, n)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// plural returns singular or plural suffix based on count.
func plural(n int, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return pluralSuffix
}

// fatalf prints to stderr and exits 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "wrapper_cache_dump: "+format+"\n", args...)
	os.Exit(1)
}
