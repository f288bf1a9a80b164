// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package wrappers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ton-community/tinfoil/services/scaffold/artifacts"
	"github.com/ton-community/tinfoil/services/scaffold/ast"
)

// =============================================================================
// Fakes
// =============================================================================

// mapReader serves file content from memory.
type mapReader map[string]string

func (r mapReader) Read(_ context.Context, path string) ([]byte, error) {
	content, ok := r[path]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w: %w", path, artifacts.ErrRead, fs.ErrNotExist)
	}
	return []byte(content), nil
}

// fakeArtifactStore serves hex strings from memory and counts lookups.
type fakeArtifactStore struct {
	hexes map[string]string
	err   error
	calls int
}

func (s *fakeArtifactStore) Lookup(_ context.Context, contractName string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	hex, ok := s.hexes[contractName]
	if !ok {
		return "", fmt.Errorf("artifact for %s: %w", contractName, artifacts.ErrNotFound)
	}
	return hex, nil
}

// memWalkCache is an in-memory WalkCacheStore that counts operations.
type memWalkCache struct {
	mu       sync.Mutex
	entries  map[string]*CachedWalk
	loads    int
	saves    int
	failLoad bool
	failSave bool
}

func newMemWalkCache() *memWalkCache {
	return &memWalkCache{entries: make(map[string]*CachedWalk)}
}

func (c *memWalkCache) LoadWalk(_ context.Context, walkKey string) (*CachedWalk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	if c.failLoad {
		return nil, errors.New("cache backend down")
	}
	return c.entries[walkKey], nil
}

func (c *memWalkCache) SaveWalk(_ context.Context, walkKey string, walk *CachedWalk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.failSave {
		return errors.New("cache backend down")
	}
	c.entries[walkKey] = walk
	return nil
}

// =============================================================================
// Test Sources
// =============================================================================

const fooSource = `import { Address, Cell, Contract, ContractProvider, Sender } from '@ton/core';

export type FooConfig = {
    owner: Address;
    seed?: number;
};

export class Foo implements Contract {
    static createFromAddress(address: Address) {
        return new Foo(address);
    }

    static createFromConfig(config: FooConfig, code: Cell) {
        return new Foo(contractAddress(0, { code, data: code }));
    }

    async sendDeploy(provider, via, value: bigint) {}

    async getData(provider): Promise<number> {
        return 0;
    }
}
`

const fooPath = "/project/wrappers/Foo.ts"

func fooExtractor(store artifacts.ArtifactStore, opts ...ExtractorOption) *Extractor {
	base := []ExtractorOption{
		WithFileReader(mapReader{fooPath: fooSource}),
		WithPathNormalizer(artifacts.NewProjectPathNormalizer("/project")),
	}
	if store != nil {
		base = append(base, WithArtifactStore(store))
	}
	return NewExtractor(append(base, opts...)...)
}

// =============================================================================
// Extraction
// =============================================================================

func TestExtractor_Extract_FooScenario(t *testing.T) {
	store := &fakeArtifactStore{hexes: map[string]string{"Foo": "b5ee9c72"}}
	e := fooExtractor(store)

	info, err := e.Extract(context.Background(), fooPath, "Foo")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, []string{"sendDeploy"}, info.SendFunctions.Keys())
	assert.Equal(t, []string{"getData"}, info.GetFunctions.Keys())

	deploy, ok := info.SendFunctions.Get("sendDeploy")
	require.True(t, ok)
	assert.Equal(t, []string{"value"}, deploy.Keys())
	value, _ := deploy.Get("value")
	assert.Equal(t, ParameterInfo{Type: "bigint"}, value)

	getData, ok := info.GetFunctions.Get("getData")
	require.True(t, ok)
	assert.Equal(t, 0, getData.Len())

	assert.True(t, info.CanBeCreatedFromConfig)
	assert.Equal(t, "b5ee9c72", info.CodeHex)
	assert.Equal(t, "wrappers/Foo.ts", info.Path)

	require.NotNil(t, info.ConfigType)
	assert.Equal(t, []string{"owner", "seed"}, info.ConfigType.Keys())
	owner, _ := info.ConfigType.Get("owner")
	assert.Equal(t, ConfigFieldInfo{FieldType: "Address"}, owner)
	seed, _ := info.ConfigType.Get("seed")
	assert.Equal(t, ConfigFieldInfo{FieldType: "number", Optional: true}, seed)
}

func TestExtractor_Extract_FooScenario_JSON(t *testing.T) {
	store := &fakeArtifactStore{hexes: map[string]string{"Foo": "b5ee9c72"}}
	e := fooExtractor(store)

	info, err := e.Extract(context.Background(), fooPath, "Foo")
	require.NoError(t, err)

	raw, err := json.Marshal(info)
	require.NoError(t, err)

	want := `{"sendFunctions":{"sendDeploy":{"value":{"type":"bigint"}}},` +
		`"getFunctions":{"getData":{}},` +
		`"path":"wrappers/Foo.ts",` +
		`"canBeCreatedFromConfig":true,` +
		`"codeHex":"b5ee9c72",` +
		`"configType":{"owner":{"fieldType":"Address"},"seed":{"fieldType":"number","optional":true}}}`
	assert.Equal(t, want, string(raw))

	// Unchanged source extracts to byte-identical JSON.
	again, err := e.Extract(context.Background(), fooPath, "Foo")
	require.NoError(t, err)
	rawAgain, err := json.Marshal(again)
	require.NoError(t, err)
	assert.Equal(t, raw, rawAgain)
}

func TestExtractor_Extract_MissingCreateFromAddress(t *testing.T) {
	source := `export class Foo implements Contract {
    static createFromConfig(config: FooConfig) {}
    async sendDeploy(provider, via) {}
}
`
	e := NewExtractor(WithFileReader(mapReader{"Foo.ts": source}))

	info, err := e.Extract(context.Background(), "Foo.ts", "Foo")
	require.Error(t, err)
	assert.Nil(t, info)

	var missing *MissingCapabilityError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Foo", missing.Class)
}

func TestExtractor_Extract_UnmatchedHeritage(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name: "no interface",
			source: `export class Foo {
    static createFromAddress(address: Address) {}
    async sendDeploy(provider, via) {}
}
`,
		},
		{
			name: "two interfaces",
			source: `export class Foo implements Contract, Upgradable {
    static createFromAddress(address: Address) {}
    async sendDeploy(provider, via) {}
}
`,
		},
		{
			name: "differently named interface",
			source: `export class Foo implements Agreement {
    static createFromAddress(address: Address) {}
    async sendDeploy(provider, via) {}
}
`,
		},
		{
			name: "extends only",
			source: `export class Foo extends Contract {
    static createFromAddress(address: Address) {}
    async sendDeploy(provider, via) {}
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(WithFileReader(mapReader{"Foo.ts": tt.source}))

			_, err := e.Extract(context.Background(), "Foo.ts", "Foo")

			var missing *MissingCapabilityError
			require.ErrorAs(t, err, &missing)
		})
	}
}

func TestExtractor_Extract_WrongClassName(t *testing.T) {
	e := fooExtractor(nil)

	_, err := e.Extract(context.Background(), fooPath, "Bar")

	var missing *MissingCapabilityError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Bar", missing.Class)
}

func TestExtractor_Extract_ArtifactFailureIsSilent(t *testing.T) {
	store := &fakeArtifactStore{err: errors.New("disk on fire")}
	e := fooExtractor(store)

	info, err := e.Extract(context.Background(), fooPath, "Foo")

	require.NoError(t, err)
	assert.Empty(t, info.CodeHex)
	assert.True(t, info.CanBeCreatedFromConfig)
	assert.Equal(t, []string{"sendDeploy"}, info.SendFunctions.Keys())
	assert.Equal(t, 1, store.calls)
}

func TestExtractor_Extract_NoArtifactStore(t *testing.T) {
	e := fooExtractor(nil)

	info, err := e.Extract(context.Background(), fooPath, "Foo")

	require.NoError(t, err)
	assert.Empty(t, info.CodeHex)
	assert.True(t, info.CanBeCreatedFromConfig)
}

func TestExtractor_Extract_NoCreateFromConfig_SkipsLookup(t *testing.T) {
	source := `export class Foo implements Contract {
    static createFromAddress(address: Address) {}
    async getData(provider) {}
}
`
	store := &fakeArtifactStore{hexes: map[string]string{"Foo": "deadbeef"}}
	e := NewExtractor(
		WithFileReader(mapReader{"Foo.ts": source}),
		WithArtifactStore(store),
	)

	info, err := e.Extract(context.Background(), "Foo.ts", "Foo")

	require.NoError(t, err)
	assert.False(t, info.CanBeCreatedFromConfig)
	assert.Empty(t, info.CodeHex)
	assert.Equal(t, 0, store.calls)
	assert.Nil(t, info.ConfigType)
}

func TestExtractor_Extract_ProviderAndViaDrops(t *testing.T) {
	source := `export class Foo implements Contract {
    static createFromAddress(address: Address) {}
    async sendTransfer(provider: ContractProvider, via: Sender, to: Address) {}
    async getHistory(provider: ContractProvider, via: Sender, limit: number) {}
}
`
	e := NewExtractor(WithFileReader(mapReader{"Foo.ts": source}))

	info, err := e.Extract(context.Background(), "Foo.ts", "Foo")
	require.NoError(t, err)

	transfer, _ := info.SendFunctions.Get("sendTransfer")
	assert.Equal(t, []string{"to"}, transfer.Keys())

	// via survives on get operations; only provider is dropped.
	history, _ := info.GetFunctions.Get("getHistory")
	assert.Equal(t, []string{"via", "limit"}, history.Keys())
	via, _ := history.Get("via")
	assert.Equal(t, "Sender", via.Type)
}

func TestExtractor_Extract_UntypedParameterBecomesAny(t *testing.T) {
	source := `export class Foo implements Contract {
    static createFromAddress(address: Address) {}
    async sendRaw(provider, body) {}
}
`
	e := NewExtractor(WithFileReader(mapReader{"Foo.ts": source}))

	info, err := e.Extract(context.Background(), "Foo.ts", "Foo")
	require.NoError(t, err)

	raw, _ := info.SendFunctions.Get("sendRaw")
	body, ok := raw.Get("body")
	require.True(t, ok)
	assert.Equal(t, "any", body.Type)
}

func TestExtractor_Extract_DefaultsAndOptionals(t *testing.T) {
	source := `export class Foo implements Contract {
    static createFromAddress(address: Address) {}
    async sendPayment(provider, via, amount: bigint = toNano('0.05'), note?: string) {}
}
`
	e := NewExtractor(WithFileReader(mapReader{"Foo.ts": source}))

	info, err := e.Extract(context.Background(), "Foo.ts", "Foo")
	require.NoError(t, err)

	payment, _ := info.SendFunctions.Get("sendPayment")
	assert.Equal(t, []string{"amount", "note"}, payment.Keys())

	amount, _ := payment.Get("amount")
	assert.Equal(t, "bigint", amount.Type)
	assert.Equal(t, "toNano('0.05')", amount.DefaultValue)
	assert.False(t, amount.Optional)

	note, _ := payment.Get("note")
	assert.Equal(t, "string", note.Type)
	assert.True(t, note.Optional)
	assert.Empty(t, note.DefaultValue)
}

func TestExtractor_Extract_DuplicateParameterLastWriteWins(t *testing.T) {
	source := `export class Foo implements Contract {
    static createFromAddress(address: Address) {}
    async sendOdd(provider, x: Cell, y: number, x: Slice) {}
}
`
	e := NewExtractor(WithFileReader(mapReader{"Foo.ts": source}))

	info, err := e.Extract(context.Background(), "Foo.ts", "Foo")
	require.NoError(t, err)

	odd, _ := info.SendFunctions.Get("sendOdd")

	// Last write wins for the value; first write keeps the position.
	assert.Equal(t, []string{"x", "y"}, odd.Keys())
	x, _ := odd.Get("x")
	assert.Equal(t, "Slice", x.Type)
}

func TestExtractor_Extract_MemberSelection(t *testing.T) {
	source := `export class Foo implements Contract {
    constructor(readonly address: Address) {}

    static createFromAddress(address: Address) {}

    static async sendStatic(provider, via, v: number) {}

    sendSync(provider, via, v: number) {}

    get getterProp(): number { return 1; }

    async helperMethod(provider) {}

    async getState(provider) {}
}
`
	e := NewExtractor(WithFileReader(mapReader{"Foo.ts": source}))

	info, err := e.Extract(context.Background(), "Foo.ts", "Foo")
	require.NoError(t, err)

	// Static, non-async, accessor, and unprefixed members are all excluded.
	assert.Equal(t, 0, info.SendFunctions.Len())
	assert.Equal(t, []string{"getState"}, info.GetFunctions.Keys())
}

func TestExtractor_Extract_ConfigAliasShapeRules(t *testing.T) {
	source := `type FooConfig = BaseConfig;

export type FooConfig = {
    first: number;
};

export type FooConfig = {
    second: number;
};

export class Foo implements Contract {
    static createFromAddress(address: Address) {}
    static createFromConfig(config: FooConfig) {}
}
`
	e := NewExtractor(WithFileReader(mapReader{"Foo.ts": source}))

	info, err := e.Extract(context.Background(), "Foo.ts", "Foo")
	require.NoError(t, err)

	// The reference-shaped alias does not match; the first object-shaped
	// declaration wins over later duplicates.
	require.NotNil(t, info.ConfigType)
	assert.Equal(t, []string{"first"}, info.ConfigType.Keys())
}

func TestExtractor_Extract_SyntaxErrorPropagates(t *testing.T) {
	source := `export class Foo implements Contract {
    async sendBroken(provider {
}
`
	e := NewExtractor(WithFileReader(mapReader{"Foo.ts": source}))

	info, err := e.Extract(context.Background(), "Foo.ts", "Foo")
	require.Error(t, err)
	assert.Nil(t, info)

	var synErr *ast.SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestExtractor_Extract_ReadFailurePropagates(t *testing.T) {
	e := NewExtractor(WithFileReader(mapReader{}))

	_, err := e.Extract(context.Background(), "missing.ts", "Foo")

	require.Error(t, err)
	assert.ErrorIs(t, err, artifacts.ErrRead)
}

func TestExtractor_Extract_EmptyClassName(t *testing.T) {
	e := fooExtractor(nil)

	_, err := e.Extract(context.Background(), fooPath, "")
	require.Error(t, err)
}

// =============================================================================
// Walk Cache Integration
// =============================================================================

func TestExtractor_Extract_WalkCacheRoundTrip(t *testing.T) {
	cache := newMemWalkCache()
	store := &fakeArtifactStore{hexes: map[string]string{"Foo": "b5ee9c72"}}
	e := fooExtractor(store, WithWalkCache(cache))

	first, err := e.Extract(context.Background(), fooPath, "Foo")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.loads)
	assert.Equal(t, 1, cache.saves)

	second, err := e.Extract(context.Background(), fooPath, "Foo")
	require.NoError(t, err)
	assert.Equal(t, 2, cache.loads)
	assert.Equal(t, 1, cache.saves, "cache hit must not re-save")

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)

	// The artifact lookup runs on every call, cached walk or not.
	assert.Equal(t, 2, store.calls)
}

func TestExtractor_Extract_WalkCacheFailureDegrades(t *testing.T) {
	cache := newMemWalkCache()
	cache.failLoad = true
	cache.failSave = true
	e := fooExtractor(nil, WithWalkCache(cache))

	info, err := e.Extract(context.Background(), fooPath, "Foo")

	require.NoError(t, err)
	assert.Equal(t, []string{"sendDeploy"}, info.SendFunctions.Keys())
}

func TestExtractor_Extract_WalkCacheMissingCapabilityCached(t *testing.T) {
	source := `export class Foo implements Contract {
    async sendOnly(provider, via) {}
}
`
	cache := newMemWalkCache()
	e := NewExtractor(
		WithFileReader(mapReader{"Foo.ts": source}),
		WithWalkCache(cache),
	)

	var missing *MissingCapabilityError
	_, err := e.Extract(context.Background(), "Foo.ts", "Foo")
	require.ErrorAs(t, err, &missing)

	// The failed walk is cached and fails again from the cache.
	_, err = e.Extract(context.Background(), "Foo.ts", "Foo")
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 1, cache.saves)
}
