// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badgerstore

import (
	"context"
	"path/filepath"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
)

// =============================================================================
// Helpers
// =============================================================================

// openMemDB opens an in-memory instance for testing.
func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(InMemoryConfig())
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// =============================================================================
// OpenDB Tests
// =============================================================================

func TestOpenDB_InMemory(t *testing.T) {
	db, err := OpenDB(InMemoryConfig())
	if err != nil {
		t.Fatalf("expected in-memory open to succeed, got %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenDB_OnDisk(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "walks")

	db, err := OpenDB(cfg)
	if err != nil {
		t.Fatalf("expected on-disk open to succeed, got %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenDB_EmptyPath(t *testing.T) {
	_, err := OpenDB(DefaultConfig())
	if err == nil {
		t.Fatal("expected error for on-disk config with empty path")
	}
}

// =============================================================================
// Transaction Tests
// =============================================================================

func TestWithTxn_RoundTrip(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	err := db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte("walk/abc"), []byte("payload"))
	})
	if err != nil {
		t.Fatalf("WithTxn: %v", err)
	}

	var got []byte
	err = db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("walk/abc"))
		if err != nil {
			return err
		}
		got, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		t.Fatalf("WithReadTxn: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("expected %q, got %q", "payload", got)
	}
}

func TestWithReadTxn_MissingKey(t *testing.T) {
	db := openMemDB(t)

	err := db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("never-written"))
		return err
	})
	if err == nil {
		t.Fatal("expected ErrKeyNotFound to surface from the closure")
	}
}

func TestWithTxn_ContextCancelled(t *testing.T) {
	db := openMemDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := db.WithTxn(ctx, func(txn *badger.Txn) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if called {
		t.Error("closure must not run once the context is cancelled")
	}
}

func TestWithReadTxn_ContextCancelled(t *testing.T) {
	db := openMemDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.WithReadTxn(ctx, func(txn *badger.Txn) error { return nil })
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose_NilReceiver(t *testing.T) {
	var db *DB
	if err := db.Close(); err != nil {
		t.Errorf("nil receiver Close should be a no-op, got %v", err)
	}
}

func TestClose_ZeroValue(t *testing.T) {
	db := &DB{}
	if err := db.Close(); err != nil {
		t.Errorf("zero-value Close should be a no-op, got %v", err)
	}
}
