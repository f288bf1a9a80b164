// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package artifacts defines the filesystem collaborators used by wrapper
// extraction: source file reading, compiled artifact lookup, and project
// path normalization. Each concern is a narrow interface so the extraction
// pipeline can be tested without touching a real project tree.
//
// Thread Safety:
//
//	All interfaces in this package must be implemented as safe for concurrent use.
package artifacts

import (
	"context"
	"errors"
)

// ErrNotFound reports that no compiled artifact exists for a contract.
//
// Callers that treat a missing artifact as a non-event (the common case
// during early development, before the first build) must check for this
// sentinel with errors.Is and ignore it.
var ErrNotFound = errors.New("artifact not found")

// ErrRead reports that a source file could not be read.
var ErrRead = errors.New("file read failed")

// FileReader reads wrapper source files.
//
// Thread Safety: Implementations must be safe for concurrent use.
type FileReader interface {
	// Read returns the full content of the file at path.
	//
	// Inputs:
	//   - ctx: Context for cancellation.
	//   - path: File path, absolute or relative to the process working directory.
	//
	// Outputs:
	//   - []byte: Raw file content.
	//   - error: Wraps ErrRead when the file cannot be read.
	Read(ctx context.Context, path string) ([]byte, error)
}

// ArtifactStore resolves compiled contract code by contract name.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ArtifactStore interface {
	// Lookup returns the hex-encoded compiled code for the named contract.
	//
	// Inputs:
	//   - ctx: Context for cancellation.
	//   - contractName: Exact contract class name (e.g. "Counter").
	//
	// Outputs:
	//   - string: Hex-encoded BOC of the compiled contract.
	//   - error: ErrNotFound when no artifact exists; any other non-nil
	//     error indicates the store itself failed.
	Lookup(ctx context.Context, contractName string) (string, error)
}

// PathNormalizer converts file paths into the form stored in output manifests.
//
// Thread Safety: Implementations must be safe for concurrent use.
type PathNormalizer interface {
	// Normalize maps a path to its canonical manifest form.
	//
	// Normalize is a pure function: it never fails and never touches the
	// filesystem. A path it cannot improve is returned in slash form as-is.
	Normalize(path string) string
}
