// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// compiledArtifact mirrors the build output JSON written by the contract
// compiler. Only the hex field matters here; hash fields are ignored.
type compiledArtifact struct {
	Hex string `json:"hex"`
}

// BuildDirStore resolves compiled artifacts from a build output directory.
//
// Description:
//
//	The compiler writes one <ContractName>.compiled.json per contract into
//	the build directory. Lookup reads that file and returns its hex field.
//	A missing file and an empty hex field both report ErrNotFound, since
//	neither yields usable code.
//
// Thread Safety: Safe for concurrent use after construction.
type BuildDirStore struct {
	dir string
}

// NewBuildDirStore creates a store over the given build output directory.
//
// Inputs:
//
//	dir - Path to the directory holding *.compiled.json files.
func NewBuildDirStore(dir string) *BuildDirStore {
	return &BuildDirStore{dir: dir}
}

// Lookup returns the hex-encoded compiled code for the named contract.
func (s *BuildDirStore) Lookup(ctx context.Context, contractName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Contract names come from class identifiers; anything with a path
	// separator would escape the build directory.
	if contractName == "" || strings.ContainsAny(contractName, `/\`) {
		return "", fmt.Errorf("invalid contract name %q", contractName)
	}

	path := filepath.Join(s.dir, contractName+".compiled.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("artifact for %s: %w", contractName, ErrNotFound)
		}
		return "", fmt.Errorf("reading artifact %s: %w", path, err)
	}

	var artifact compiledArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return "", fmt.Errorf("parsing artifact %s: %w", path, err)
	}

	if artifact.Hex == "" {
		return "", fmt.Errorf("artifact for %s has no code hex: %w", contractName, ErrNotFound)
	}

	return artifact.Hex, nil
}
