// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package wrappers

// =============================================================================
// WalkCacheStore — Walk Result Persistence
// =============================================================================
//
// Walking a wrapper's syntax tree is pure: the result depends only on the
// source bytes and the target class name. Parsing dominates extraction cost,
// so repeated scans over an unchanged wrappers/ directory (watch mode, dapp
// dev servers polling the HTTP API) can skip the parse entirely. This store
// persists walk results in BadgerDB between runs.
//
// Design choices:
//
//	1. Content hash as cache key: SHA256(source bytes + class name). Any edit
//	   to the file produces a different hash, so stale entries become
//	   unreachable and age out via TTL. No explicit invalidation API is
//	   needed — just delete the cache directory.
//
//	2. CodeHex and Path are NOT cached: both depend on state outside the
//	   source file (build output, project root). They are re-resolved on
//	   every call, so a fresh contract build is visible immediately even on
//	   a cache hit.
//
//	3. BadgerDB native TTL: 7-day expiry is enforced by BadgerDB's GC, not by
//	   application code. Expired keys return ErrKeyNotFound, which the store
//	   treats as a cache miss.
//
//	4. Cache failures degrade to recompute: a load or save error is logged
//	   and the extraction proceeds from the parse. The cache can never make
//	   a correct extraction fail.
//
// Storage layout:
//
//	scaffold/walk/v1/{walkKey}  →  gob-encoded CachedWalk
//	                               TTL: 7 days

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	badgerstore "github.com/ton-community/tinfoil/services/scaffold/storage/badger"
)

// walkCacheDefaultTTL is the default lifetime of a cached walk result.
// 7 days is long enough to survive weekends without accumulating stale
// entries indefinitely.
const walkCacheDefaultTTL = 7 * 24 * time.Hour

// walkCacheKeyPrefix is prepended to the walk key to form the BadgerDB key.
// Versioned (v1) to allow future format changes without collision.
const walkCacheKeyPrefix = "scaffold/walk/v1/"

// errCacheMiss is a sentinel used internally to distinguish "key not found"
// (a normal cache miss) from a genuine storage error in LoadWalk.
var errCacheMiss = errors.New("cache miss")

// CachedWalk is the persisted portion of one walk result.
//
// # Description
//
// Everything derived purely from the source text is here. CodeHex and the
// normalized path are deliberately absent (design choice 2 above). A walk
// that found no usable class is cached too, with both capability flags
// false, so repeated requests for a non-wrapper file fail fast.
type CachedWalk struct {
	SendFunctions     *OperationTable
	GetFunctions      *OperationTable
	CreateFromConfig  bool
	CreateFromAddress bool
	ConfigType        *ConfigTypeInfo
}

// =============================================================================
// WalkCacheStore Interface
// =============================================================================

// WalkCacheStore persists walk results across runs.
//
// # Description
//
// The store is keyed by walk key — a SHA256 digest of the source bytes and
// the target class name (from computeWalkKey).
//
// The Extractor checks for a nil WalkCacheStore and skips persistence,
// walking every call. This is the correct behavior for tests and for
// one-shot CLI invocations that do not configure a cache directory.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type WalkCacheStore interface {
	// LoadWalk retrieves the cached walk result for the given walk key.
	//
	// Returns (nil, nil) on cache miss (key absent or TTL expired).
	// Returns (nil, error) on storage failure.
	// Returns (walk, nil) on cache hit.
	LoadWalk(ctx context.Context, walkKey string) (*CachedWalk, error)

	// SaveWalk persists a walk result for the given walk key. The store
	// applies a 7-day TTL automatically.
	//
	// Returns non-nil error only on storage failure. The caller logs the
	// error and continues — persistence failure is non-fatal; the walk
	// will be recomputed on the next call.
	SaveWalk(ctx context.Context, walkKey string, walk *CachedWalk) error
}

// =============================================================================
// BadgerWalkCacheStore
// =============================================================================

// BadgerWalkCacheStore implements WalkCacheStore backed by a BadgerDB
// instance. The DB is expected to be opened once at startup and shared.
//
// # Description
//
// Walk results are gob-encoded CachedWalk values (a few hundred bytes per
// wrapper). The key is the walk key prefixed with the storage layout
// version string.
//
// TTL is enforced by BadgerDB's native GC — no application-level expiry
// check is needed. Expired keys return ErrKeyNotFound, which this store
// treats as a cache miss.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine.
type BadgerWalkCacheStore struct {
	db     *badgerstore.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerWalkCacheStore creates a BadgerWalkCacheStore backed by the
// given DB instance.
//
// # Description
//
// The DB must be opened by the caller (typically in main) and must not be
// closed before the store is done being used. The caller is responsible for
// the DB lifecycle — this store does not own the DB.
//
// # Inputs
//
//   - db: Opened BadgerDB wrapper. Must not be nil.
//   - ttl: Lifetime for each cached entry. Pass 0 to use the default (7 days).
//   - logger: Logger for cache hit/miss diagnostics. May be nil.
//
// # Outputs
//
//   - *BadgerWalkCacheStore: Ready-to-use store. Never nil.
//
// # Thread Safety
//
// The returned store is safe for concurrent use.
func NewBadgerWalkCacheStore(db *badgerstore.DB, ttl time.Duration, logger *slog.Logger) *BadgerWalkCacheStore {
	if db == nil {
		panic("NewBadgerWalkCacheStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = walkCacheDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerWalkCacheStore{db: db, ttl: ttl, logger: logger}
}

// LoadWalk retrieves the cached walk result for the given walk key.
//
// # Description
//
// Looks up the key scaffold/walk/v1/{walkKey}. Returns (nil, nil) on miss
// (key not found or TTL expired). Returns (nil, error) on storage or decode
// failure. Returns (walk, nil) on success.
//
// # Thread Safety
//
// Safe for concurrent use.
func (s *BadgerWalkCacheStore) LoadWalk(ctx context.Context, walkKey string) (*CachedWalk, error) {
	key := walkCacheKey(walkKey)

	var raw []byte
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy value: %w", err)
		}
		return nil
	})

	if errors.Is(err, errCacheMiss) {
		s.logger.Debug("walk cache: miss", slog.String("key", shortHash(walkKey)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("walk cache load: %w", err)
	}

	walk, err := gobDecodeWalk(raw)
	if err != nil {
		return nil, fmt.Errorf("walk cache decode: %w", err)
	}

	s.logger.Debug("walk cache: hit",
		slog.String("key", shortHash(walkKey)),
		slog.Int("send_ops", walk.SendFunctions.Len()),
		slog.Int("get_ops", walk.GetFunctions.Len()),
	)
	return walk, nil
}

// SaveWalk persists a walk result with the configured TTL.
//
// # Thread Safety
//
// Safe for concurrent use.
func (s *BadgerWalkCacheStore) SaveWalk(ctx context.Context, walkKey string, walk *CachedWalk) error {
	if walk == nil {
		return nil
	}

	raw, err := gobEncodeWalk(walk)
	if err != nil {
		return fmt.Errorf("walk cache encode: %w", err)
	}

	key := walkCacheKey(walkKey)
	err = s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, raw).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("walk cache save: %w", err)
	}

	s.logger.Debug("walk cache: saved",
		slog.String("key", shortHash(walkKey)),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

// =============================================================================
// Walk Key
// =============================================================================

// computeWalkKey computes a deterministic SHA256 hash of the source bytes
// and the target class name.
//
// # Description
//
// The hash captures everything the walk result depends on: the file content
// and which class is being extracted (two classes in one file walk
// differently). The newline-delimited suffix keeps "ab"+"c" distinct from
// "a"+"bc".
//
// # Outputs
//
//   - string: Lowercase hex-encoded SHA256 digest (64 characters).
func computeWalkKey(content []byte, className string) string {
	h := sha256.New()
	h.Write(content)
	fmt.Fprintf(h, "\nclass=%s\n", className)
	return hex.EncodeToString(h.Sum(nil))
}

// =============================================================================
// Helpers
// =============================================================================

// walkCacheKey builds the BadgerDB key for the given walk key.
func walkCacheKey(walkKey string) []byte {
	return []byte(walkCacheKeyPrefix + walkKey)
}

// shortHash returns the first 8 characters of a hash for log display.
func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8] + "..."
	}
	return h
}

// gobEncodeWalk serializes a CachedWalk using encoding/gob.
func gobEncodeWalk(walk *CachedWalk) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(walk); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// gobDecodeWalk deserializes a CachedWalk from gob-encoded bytes.
func gobDecodeWalk(data []byte) (*CachedWalk, error) {
	var walk CachedWalk
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&walk); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return &walk, nil
}
