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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterSet_InsertionOrder(t *testing.T) {
	set := NewParameterSet()
	set.Set("value", ParameterInfo{Type: "bigint"})
	set.Set("to", ParameterInfo{Type: "Address"})
	set.Set("body", ParameterInfo{Type: "Cell"})

	assert.Equal(t, []string{"value", "to", "body"}, set.Keys())
	assert.Equal(t, 3, set.Len())
}

func TestParameterSet_OverwriteKeepsPosition(t *testing.T) {
	set := NewParameterSet()
	set.Set("a", ParameterInfo{Type: "number"})
	set.Set("b", ParameterInfo{Type: "string"})
	set.Set("a", ParameterInfo{Type: "Cell"})

	assert.Equal(t, []string{"a", "b"}, set.Keys())
	a, ok := set.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Cell", a.Type)
}

func TestParameterSet_MarshalJSON_Empty(t *testing.T) {
	raw, err := json.Marshal(NewParameterSet())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestParameterSet_MarshalJSON_Order(t *testing.T) {
	set := NewParameterSet()
	set.Set("zeta", ParameterInfo{Type: "bigint"})
	set.Set("alpha", ParameterInfo{Type: "number", Optional: true})

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t,
		`{"zeta":{"type":"bigint"},"alpha":{"type":"number","optional":true}}`,
		string(raw))
}

func TestParameterSet_UnmarshalJSON_PreservesOrder(t *testing.T) {
	input := `{"zeta":{"type":"bigint"},"alpha":{"type":"number"},"mid":{"type":"Cell","defaultValue":"beginCell().endCell()"}}`

	set := NewParameterSet()
	require.NoError(t, json.Unmarshal([]byte(input), set))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, set.Keys())
	mid, ok := set.Get("mid")
	require.True(t, ok)
	assert.Equal(t, "beginCell().endCell()", mid.DefaultValue)

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t, input, string(raw))
}

func TestParameterSet_UnmarshalJSON_RejectsNonObject(t *testing.T) {
	set := NewParameterSet()
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), set))
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), set))
}

func TestOperationTable_MarshalJSON_Nested(t *testing.T) {
	deploy := NewParameterSet()
	deploy.Set("value", ParameterInfo{Type: "bigint"})

	table := NewOperationTable()
	table.Set("sendDeploy", deploy)
	table.Set("sendUpgrade", NewParameterSet())

	raw, err := json.Marshal(table)
	require.NoError(t, err)
	assert.Equal(t,
		`{"sendDeploy":{"value":{"type":"bigint"}},"sendUpgrade":{}}`,
		string(raw))
}

func TestWrappersData_GobRoundTrip(t *testing.T) {
	deploy := NewParameterSet()
	deploy.Set("value", ParameterInfo{Type: "bigint", DefaultValue: "toNano('1')"})

	send := NewOperationTable()
	send.Set("sendDeploy", deploy)

	config := NewConfigTypeInfo()
	config.Set("owner", ConfigFieldInfo{FieldType: "Address"})
	config.Set("seed", ConfigFieldInfo{FieldType: "number", Optional: true})

	data := NewWrappersData()
	data.Set("Foo", &WrapperInfo{
		SendFunctions:          send,
		GetFunctions:           NewOperationTable(),
		Path:                   "wrappers/Foo.ts",
		CanBeCreatedFromConfig: true,
		CodeHex:                "b5ee9c72",
		ConfigType:             config,
	})

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(data))

	decoded := NewWrappersData()
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))

	wantJSON, err := json.Marshal(data)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(wantJSON), string(gotJSON))
}

func TestWrapperInfo_MarshalJSON_OmitsAbsentFields(t *testing.T) {
	info := &WrapperInfo{
		SendFunctions: NewOperationTable(),
		GetFunctions:  NewOperationTable(),
		Path:          "wrappers/Bare.ts",
	}

	raw, err := json.Marshal(info)
	require.NoError(t, err)
	assert.Equal(t,
		`{"sendFunctions":{},"getFunctions":{},"path":"wrappers/Bare.ts","canBeCreatedFromConfig":false}`,
		string(raw))
}

func TestOrderedMap_KeysIsACopy(t *testing.T) {
	set := NewParameterSet()
	set.Set("a", ParameterInfo{Type: "number"})
	set.Set("b", ParameterInfo{Type: "string"})

	keys := set.Keys()
	keys[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, set.Keys())
}

func TestConfigData_UnmarshalJSON_PreservesUserOrder(t *testing.T) {
	input := `{"Minter":{"tabName":"Jetton Minter"},"Counter":{"tabName":"Counter","defaultAddress":"EQAA"}}`

	config := NewConfigData()
	require.NoError(t, json.Unmarshal([]byte(input), config))

	assert.Equal(t, []string{"Minter", "Counter"}, config.Keys())
	counter, ok := config.Get("Counter")
	require.True(t, ok)
	assert.Equal(t, "EQAA", counter.DefaultAddress)
}
