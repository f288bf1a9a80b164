// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badgerstore wraps BadgerDB lifecycle and transaction plumbing so
// callers only deal with transaction closures. Badger's own logger is
// silenced; operational logging happens at the call sites with slog.
package badgerstore

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Config holds the knobs for opening a BadgerDB instance.
type Config struct {
	// Path is the on-disk directory for the database. Ignored when InMemory.
	Path string

	// InMemory opens a throwaway in-memory instance (tests).
	InMemory bool
}

// DefaultConfig returns the standard on-disk configuration.
// The caller must set Path before opening.
func DefaultConfig() Config {
	return Config{}
}

// InMemoryConfig returns a configuration for an in-memory instance.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// DB is an open BadgerDB handle.
//
// Thread Safety: Safe for concurrent use; Badger serializes internally.
type DB struct {
	db *badger.DB
}

// OpenDB opens a BadgerDB instance per the config.
//
// Inputs:
//
//	cfg - Open configuration. On-disk mode requires a non-empty Path.
//
// Outputs:
//
//	*DB - The open handle. Caller must Close it.
//	error - Non-nil if the database cannot be opened (bad path, lock held).
func OpenDB(cfg Config) (*DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badgerstore.OpenDB: empty path")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore.OpenDB: %w", err)
	}

	return &DB{db: db}, nil
}

// WithReadTxn runs fn inside a read-only transaction.
//
// The context is checked before the transaction starts; Badger itself does
// not observe cancellation mid-transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// WithTxn runs fn inside a read-write transaction.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}
