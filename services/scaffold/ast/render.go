// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// renderNode renders a syntax node back to canonical single-line text.
//
// Description:
//
//	The node's source byte range is taken verbatim and all whitespace
//	runs (including newlines in multi-line object types) are collapsed
//	to single spaces. No identifier, literal, or punctuation is altered,
//	so every rendered type round-trips to a string the TypeScript
//	compiler would accept. Rendering the same node always produces the
//	same bytes.
//
// Inputs:
//   - content: Source file bytes the node was parsed from.
//   - node: The node to render. May be nil.
//
// Outputs:
//   - string: Canonical single-line text. Empty for a nil node.
func renderNode(content []byte, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	raw := string(content[node.StartByte():node.EndByte()])
	return strings.Join(strings.Fields(raw), " ")
}

// renderTypeAnnotation renders the type inside a type_annotation node,
// skipping the leading ":" marker token.
func renderTypeAnnotation(content []byte, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != ":" {
			return renderNode(content, child)
		}
	}
	return ""
}
