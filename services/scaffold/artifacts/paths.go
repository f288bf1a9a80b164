// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package artifacts

import (
	"path/filepath"
	"strings"
)

// ProjectPathNormalizer rewrites paths relative to a project root.
//
// Description:
//
//	Output manifests refer to wrapper files by project-relative paths with
//	forward slashes, so a manifest generated on one machine is usable on
//	another. Paths outside the root (or paths that cannot be made relative)
//	pass through unchanged apart from slash conversion.
//
// Thread Safety: Safe for concurrent use after construction.
type ProjectPathNormalizer struct {
	root string
}

// NewProjectPathNormalizer creates a normalizer anchored at root.
// An empty root disables relativization and only converts slashes.
func NewProjectPathNormalizer(root string) *ProjectPathNormalizer {
	return &ProjectPathNormalizer{root: root}
}

// Normalize maps a path to its project-relative slash form.
func (n *ProjectPathNormalizer) Normalize(path string) string {
	result := path

	if n.root != "" {
		if rel, err := filepath.Rel(n.root, path); err == nil && !strings.HasPrefix(rel, "..") {
			result = rel
		}
	}

	return filepath.ToSlash(result)
}
