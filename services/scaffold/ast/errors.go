// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is returned when source content exceeds the parser's
	// configured maximum file size.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent is returned when source content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")
)

// Diagnostic describes a single syntax problem at a source location.
// Line and Col are 1-based.
type Diagnostic struct {
	Line    int
	Col     int
	Message string
}

// String formats the diagnostic as "line:col: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Col, d.Message)
}

// SyntaxError reports that a source file could not be parsed cleanly.
//
// Description:
//
//	tree-sitter is error-tolerant and produces a tree even for broken
//	input, but downstream extraction must never operate on a partial
//	tree: a dropped method or parameter would silently corrupt the
//	generated metadata. Any ERROR or MISSING node in the tree is
//	therefore fatal, and the diagnostics collected from those nodes are
//	carried here for reporting.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type SyntaxError struct {
	// Path is the file that failed to parse (as given to Parse).
	Path string

	// Diagnostics lists the syntax problems found, in document order.
	// Capped at maxDiagnostics; Truncated is set when more existed.
	Diagnostics []Diagnostic

	// Truncated reports whether diagnostics beyond the cap were dropped.
	Truncated bool
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("%s: syntax error", e.Path)
	}
	first := e.Diagnostics[0]
	if len(e.Diagnostics) == 1 && !e.Truncated {
		return fmt.Sprintf("%s:%s", e.Path, first.String())
	}
	suffix := ""
	if e.Truncated {
		suffix = "+"
	}
	return fmt.Sprintf("%s:%s (and %d%s more)", e.Path, first.String(), len(e.Diagnostics)-1, suffix)
}
