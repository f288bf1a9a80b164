// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package artifacts

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectPathNormalizer_Normalize(t *testing.T) {
	root := filepath.Join("/home", "dev", "project")
	n := NewProjectPathNormalizer(root)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "inside root",
			in:   filepath.Join(root, "wrappers", "Counter.ts"),
			want: "wrappers/Counter.ts",
		},
		{
			name: "root itself",
			in:   root,
			want: ".",
		},
		{
			name: "outside root passes through",
			in:   filepath.Join("/tmp", "elsewhere", "Counter.ts"),
			want: "/tmp/elsewhere/Counter.ts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestProjectPathNormalizer_EmptyRoot(t *testing.T) {
	n := NewProjectPathNormalizer("")

	in := filepath.Join("wrappers", "Counter.ts")
	assert.Equal(t, "wrappers/Counter.ts", n.Normalize(in))
}

func TestProjectPathNormalizer_RelativeInputUnchanged(t *testing.T) {
	n := NewProjectPathNormalizer(filepath.Join("/home", "dev", "project"))

	// Rel cannot mix a relative path with an absolute root; input passes through.
	assert.Equal(t, "wrappers/Counter.ts", n.Normalize(filepath.Join("wrappers", "Counter.ts")))
}
