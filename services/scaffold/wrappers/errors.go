// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package wrappers

import "fmt"

// MissingCapabilityError reports that the target class does not expose the
// static createFromAddress factory every usable wrapper must have.
//
// Description:
//
//	createFromAddress is the one capability binding generation cannot work
//	without: every generated binding attaches to an on-chain address. The
//	error also covers the degenerate cases where the walk matched no class
//	at all (wrong name, no Contract interface), since those leave the
//	capability unrecorded.
type MissingCapabilityError struct {
	// Class is the contract class name that was requested.
	Class string
}

// Error implements the error interface.
func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("wrapper class %s has no static createFromAddress factory", e.Class)
}
