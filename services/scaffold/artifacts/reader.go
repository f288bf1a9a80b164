// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package artifacts

import (
	"context"
	"fmt"
	"os"
)

// OSFileReader reads wrapper sources from the local filesystem.
//
// Thread Safety: Safe for concurrent use (stateless).
type OSFileReader struct{}

// NewOSFileReader creates a filesystem-backed FileReader.
func NewOSFileReader() *OSFileReader {
	return &OSFileReader{}
}

// Read returns the content of the file at path.
func (r *OSFileReader) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w: %w", path, ErrRead, err)
	}

	return data, nil
}
