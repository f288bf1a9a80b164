// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"testing"
)

func TestRender_NilNode(t *testing.T) {
	if got := renderNode([]byte("anything"), nil); got != "" {
		t.Errorf("expected empty string for nil node, got %q", got)
	}
}

func TestRender_CollapsesWhitespace(t *testing.T) {
	source := `export class Fmt implements Contract {
    async sendPayload(
        provider: ContractProvider,
        body: Map<number,
            Cell>,
    ) {}
}
`
	parser := NewParser()
	file, err := parser.Parse(context.Background(), []byte(source), "test.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params := file.Classes[0].Methods[0].Params
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(params))
	}

	want := "Map<number, Cell>"
	if params[1].Type != want {
		t.Errorf("expected %q, got %q", want, params[1].Type)
	}
}

func TestRender_SingleTokenIdentity(t *testing.T) {
	source := `export type C = { a: bigint; };`

	parser := NewParser()
	file, err := parser.Parse(context.Background(), []byte(source), "test.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(file.Aliases) != 1 || len(file.Aliases[0].Fields) != 1 {
		t.Fatalf("unexpected alias shape: %+v", file.Aliases)
	}
	if got := file.Aliases[0].Fields[0].Type; got != "bigint" {
		t.Errorf("expected 'bigint', got %q", got)
	}
}

func TestRender_ComplexFieldTypes(t *testing.T) {
	source := `export type JettonConfig = {
    content: Cell | null;
    admins: Address[];
    limits: { soft: bigint; hard: bigint };
};`

	parser := NewParser()
	file, err := parser.Parse(context.Background(), []byte(source), "test.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := file.Aliases[0].Fields
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}

	wants := []string{"Cell | null", "Address[]", "{ soft: bigint; hard: bigint }"}
	for i, want := range wants {
		if fields[i].Type != want {
			t.Errorf("field %d: expected %q, got %q", i, want, fields[i].Type)
		}
	}
}
