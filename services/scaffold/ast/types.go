// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

const (
	// DefaultMaxFileSize is the default maximum source file size the parser
	// accepts (10 MB). Wrapper files are typically a few KB; anything near
	// this limit is almost certainly not a hand-written wrapper.
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold above which a warning is logged for
	// unusually large source files (1 MB).
	WarnFileSize = 1 * 1024 * 1024
)

// SourceFile is the structural view of one parsed TypeScript source file.
//
// Description:
//
//	Holds only the declarations the wrapper analysis consumes: classes
//	(with their heritage and methods) and type aliases (with object-type
//	fields when the alias value is an object literal). Both slices
//	preserve document order, including declarations nested inside export
//	statements.
//
// Thread Safety: Immutable after Parse returns; safe for concurrent use.
type SourceFile struct {
	// Path is the file path as given to Parse.
	Path string

	// Hash is the lowercase hex SHA-256 of the source bytes.
	Hash string

	// Classes lists all top-level class declarations in document order.
	Classes []*ClassDecl

	// Aliases lists all top-level type alias declarations in document order.
	Aliases []*TypeAliasDecl
}

// ClassDecl describes a class declaration.
type ClassDecl struct {
	// Name is the class identifier.
	Name string

	// Exported reports whether the class appears in an export statement.
	Exported bool

	// Extends is the rendered superclass expression, or empty.
	Extends string

	// Implements lists the implemented interface types in declaration order.
	Implements []HeritageType

	// Methods lists the class's method definitions in declaration order.
	// Field definitions are not collected.
	Methods []*MethodDecl

	// StartLine is the 1-based line of the declaration.
	StartLine int
}

// HeritageType is one entry of an implements clause.
//
// For a plain interface reference the head equals the rendered text; for
// a generic instantiation like Provider<X> the head is the base identifier
// ("Provider") and Text the full rendered expression.
type HeritageType struct {
	Head string
	Text string
}

// MethodDecl describes a method definition inside a class body.
type MethodDecl struct {
	// Name is the method's property identifier.
	Name string

	// Static reports the static modifier.
	Static bool

	// Async reports the async modifier.
	Async bool

	// Accessor reports a get/set accessor definition.
	Accessor bool

	// Params lists the method's formal parameters left to right.
	Params []*ParamDecl

	// ReturnType is the rendered return type annotation, or empty.
	ReturnType string

	// StartLine is the 1-based line of the definition.
	StartLine int
}

// ParamDecl describes one formal parameter.
type ParamDecl struct {
	// Name is the parameter identifier. Empty for destructuring patterns,
	// which carry no extractable name.
	Name string

	// Type is the rendered declared type, or empty when no annotation
	// is present.
	Type string

	// Optional reports the trailing "?" marker.
	Optional bool

	// Default is the rendered initializer expression, or empty.
	Default string
}

// TypeAliasDecl describes a type alias declaration.
type TypeAliasDecl struct {
	// Name is the alias identifier.
	Name string

	// Exported reports whether the alias appears in an export statement.
	Exported bool

	// Object reports whether the alias value is an object type literal.
	// Aliases to references, unions, generics, etc. have Object false and
	// no Fields.
	Object bool

	// Fields lists the object type's property signatures in declaration
	// order. Only populated when Object is true.
	Fields []*FieldDecl

	// StartLine is the 1-based line of the declaration.
	StartLine int
}

// FieldDecl describes one property signature of an object type literal.
type FieldDecl struct {
	// Name is the property identifier.
	Name string

	// Type is the rendered property type, or empty when no annotation
	// is present.
	Type string

	// Optional reports the "?" marker on the property.
	Optional bool
}
