// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package wrappers

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// orderedMap is a string-keyed mapping with JavaScript object semantics:
// keys keep their first-insertion position, and re-assigning an existing
// key replaces the value without moving it. All the manifest collections
// below embed it, so their JSON output preserves declaration order and
// repeated runs over unchanged input produce byte-identical files.
//
// Not safe for concurrent mutation; built once per extraction, then read-only.
type orderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// orderedPair is the gob wire form of one entry.
type orderedPair[V any] struct {
	Key   string
	Value V
}

// Set inserts or replaces the value for key.
//
// A new key is appended at the end; an existing key keeps its original
// position and takes the new value (last-write-wins value, first-write
// position).
func (m *orderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it exists.
func (m *orderedMap[V]) Get(key string) (V, bool) {
	value, ok := m.values[key]
	return value, ok
}

// Len returns the number of entries.
func (m *orderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *orderedMap[V]) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// MarshalJSON writes the entries as a JSON object in insertion order.
// An empty map marshals as {} rather than null.
func (m *orderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("marshaling key %q: %w", key, err)
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')

		valueJSON, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, fmt.Errorf("marshaling value for %q: %w", key, err)
		}
		buf.Write(valueJSON)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, recording keys in document order.
func (m *orderedMap[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading object start: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	*m = orderedMap[V]{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}

		var value V
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decoding value for %q: %w", key, err)
		}
		m.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading object end: %w", err)
	}
	return nil
}

// GobEncode serializes the entries as an ordered pair slice.
func (m *orderedMap[V]) GobEncode() ([]byte, error) {
	pairs := make([]orderedPair[V], 0, len(m.keys))
	for _, key := range m.keys {
		pairs = append(pairs, orderedPair[V]{Key: key, Value: m.values[key]})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pairs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores the entries from an ordered pair slice.
func (m *orderedMap[V]) GobDecode(data []byte) error {
	var pairs []orderedPair[V]
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&pairs); err != nil {
		return err
	}

	*m = orderedMap[V]{}
	for _, pair := range pairs {
		m.Set(pair.Key, pair.Value)
	}
	return nil
}

// ============================================================================
// Manifest Data Model
// ============================================================================

// ParameterInfo describes one operation parameter as it appears in the
// wrapper manifest.
type ParameterInfo struct {
	// Type is the canonical single-line rendering of the declared type,
	// or "any" when the parameter carries no annotation.
	Type string `json:"type"`

	// DefaultValue is the initializer expression rendered to text, when present.
	DefaultValue string `json:"defaultValue,omitempty"`

	// Optional is true for `name?: T` parameters.
	Optional bool `json:"optional,omitempty"`
}

// ParameterSet maps parameter name to ParameterInfo in declaration order.
type ParameterSet struct {
	orderedMap[ParameterInfo]
}

// NewParameterSet creates an empty parameter set.
func NewParameterSet() *ParameterSet {
	return &ParameterSet{}
}

// OperationTable maps operation name to its parameters in declaration order.
// A wrapper carries two independent tables (send and get).
type OperationTable struct {
	orderedMap[*ParameterSet]
}

// NewOperationTable creates an empty operation table.
func NewOperationTable() *OperationTable {
	return &OperationTable{}
}

// ConfigFieldInfo describes one field of a wrapper's config object type.
type ConfigFieldInfo struct {
	// FieldType is the canonical single-line rendering of the field's type.
	FieldType string `json:"fieldType"`

	// Optional is true for `name?: T` fields.
	Optional bool `json:"optional,omitempty"`
}

// ConfigTypeInfo maps config field name to ConfigFieldInfo in declaration
// order. A nil *ConfigTypeInfo means the wrapper file declares no matching
// config type alias (absent, not empty).
type ConfigTypeInfo struct {
	orderedMap[ConfigFieldInfo]
}

// NewConfigTypeInfo creates an empty config type description.
func NewConfigTypeInfo() *ConfigTypeInfo {
	return &ConfigTypeInfo{}
}

// WrapperInfo is the extracted public surface of one contract wrapper class.
//
// Description:
//
//	SendFunctions and GetFunctions are always non-nil (empty tables marshal
//	as {}). CodeHex is present only when the wrapper can be created from
//	config AND a compiled artifact was found; a failed artifact lookup
//	leaves it absent rather than failing the extraction. ConfigType is nil
//	when the file declares no `<ClassName>Config` object type alias.
//
// Thread Safety: Built once per extraction; safe for concurrent reads.
type WrapperInfo struct {
	SendFunctions          *OperationTable `json:"sendFunctions"`
	GetFunctions           *OperationTable `json:"getFunctions"`
	Path                   string          `json:"path"`
	CanBeCreatedFromConfig bool            `json:"canBeCreatedFromConfig"`
	CodeHex                string          `json:"codeHex,omitempty"`
	ConfigType             *ConfigTypeInfo `json:"configType,omitempty"`
}

// WrappersData maps contract class name to WrapperInfo in scan order.
// This is the top-level shape of wrappers.json.
type WrappersData struct {
	orderedMap[*WrapperInfo]
}

// NewWrappersData creates an empty wrappers manifest.
func NewWrappersData() *WrappersData {
	return &WrappersData{}
}

// ConfigEntry is one wrapper's UI hints in config.json.
type ConfigEntry struct {
	// TabName is the label shown for this wrapper; defaults to the class name.
	TabName string `json:"tabName"`

	// DefaultAddress pre-fills the address field for createFromAddress flows.
	DefaultAddress string `json:"defaultAddress,omitempty"`
}

// ConfigData maps contract class name to ConfigEntry in scan order.
// This is the top-level shape of config.json. Existing entries (possibly
// user-edited) survive re-scans; see MergeConfig.
type ConfigData struct {
	orderedMap[ConfigEntry]
}

// NewConfigData creates an empty config manifest.
func NewConfigData() *ConfigData {
	return &ConfigData{}
}
