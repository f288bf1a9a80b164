// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.opentelemetry.io/otel/codes"
)

// maxDiagnostics caps the number of syntax diagnostics collected per file.
const maxDiagnostics = 10

// ParserOption configures a Parser instance.
type ParserOption func(*Parser)

// WithMaxFileSize sets the maximum file size the parser will accept.
//
// Parameters:
//   - bytes: Maximum file size in bytes. Must be positive.
//
// Example:
//
//	parser := NewParser(WithMaxFileSize(5 * 1024 * 1024)) // 5MB limit
func WithMaxFileSize(bytes int64) ParserOption {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// Parser parses TypeScript wrapper source files into a structural view.
//
// Description:
//
//	Parser uses tree-sitter with the full typed grammar to build a syntax
//	tree and extract the declarations wrapper analysis needs: classes with
//	their heritage, methods, and parameters, and type aliases with their
//	object-type fields. Parsing is strict: a file containing any syntax
//	error is rejected with *SyntaxError rather than analyzed partially.
//
// Thread Safety:
//
//	Parser instances are safe for concurrent use. Multiple goroutines may
//	call Parse simultaneously on the same Parser instance; each call
//	creates its own tree-sitter parser internally.
//
// Example:
//
//	parser := NewParser()
//	file, err := parser.Parse(ctx, src, "wrappers/Counter.ts")
//	if err != nil {
//	    return err
//	}
//	for _, cls := range file.Classes {
//	    fmt.Println(cls.Name)
//	}
type Parser struct {
	maxFileSize int64
}

// NewParser creates a new Parser with the given options.
//
// Inputs:
//   - opts: Optional configuration functions (WithMaxFileSize).
//
// Outputs:
//   - *Parser: Configured parser instance, never nil.
//
// Thread Safety:
//
//	The returned Parser is safe for concurrent use.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse builds the structural view of one TypeScript source file.
//
// Description:
//
//	Parse validates the input, builds a tree-sitter syntax tree, rejects
//	the file if the tree contains any ERROR or MISSING node, and extracts
//	top-level class and type alias declarations (including those wrapped
//	in export statements) into a SourceFile.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//     Note: Tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw TypeScript source bytes. Must be valid UTF-8.
//   - filePath: Path to the file, used for error reporting and grammar
//     selection (.tsx files use the TSX grammar).
//
// Outputs:
//   - *SourceFile: Structural view of the file. Never nil on success.
//   - error: Non-nil on any failure:
//   - *SyntaxError: The file contains syntax errors. No partial view
//     is returned.
//   - ErrFileTooLarge: Content exceeds the configured maximum size.
//   - ErrInvalidContent: Content is not valid UTF-8.
//   - Context errors: Context was canceled or timed out.
//
// Example:
//
//	file, err := parser.Parse(ctx, src, "wrappers/Counter.ts")
//	var synErr *ast.SyntaxError
//	if errors.As(err, &synErr) {
//	    for _, d := range synErr.Diagnostics {
//	        fmt.Println(d)
//	    }
//	}
//
// Limitations:
//   - Tree-sitter parsing is synchronous and cannot be interrupted mid-parse.
//   - Declarations nested inside namespaces or functions are not collected.
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) (*SourceFile, error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	// Check context before starting
	if err := ctx.Err(); err != nil {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	// Validate file size
	if int64(len(content)) > p.maxFileSize {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	// Log warning for large files
	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	// Validate UTF-8
	if !utf8.Valid(content) {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	// Compute hash before parsing (captures input)
	hash := sha256.Sum256(content)
	hashStr := hex.EncodeToString(hash[:])

	// Create tree-sitter parser (new instance per call for thread safety)
	parser := sitter.NewParser()

	// Use TSX grammar for .tsx files, TypeScript grammar otherwise
	if strings.HasSuffix(filePath, ".tsx") {
		parser.SetLanguage(tsx.GetLanguage())
	} else {
		parser.SetLanguage(typescript.GetLanguage())
	}

	// Parse the content
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	// Check context after parsing
	if err := ctx.Err(); err != nil {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	rootNode := tree.RootNode()
	if rootNode == nil {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("tree-sitter returned nil root node for %s", filePath)
	}

	// A tree with any ERROR or MISSING node is rejected outright. Partial
	// extraction would silently drop methods or parameters and corrupt
	// the generated metadata.
	if rootNode.HasError() {
		diags, truncated := collectDiagnostics(rootNode, content)
		syntaxErrorsTotal.Inc()
		recordParseMetrics(time.Since(start), false)
		synErr := &SyntaxError{Path: filePath, Diagnostics: diags, Truncated: truncated}
		span.SetStatus(codes.Error, "syntax errors")
		slog.Debug("rejected source with syntax errors",
			slog.String("file", filePath),
			slog.Int("diagnostics", len(diags)))
		return nil, synErr
	}

	file := &SourceFile{
		Path:    filePath,
		Hash:    hashStr,
		Classes: make([]*ClassDecl, 0),
		Aliases: make([]*TypeAliasDecl, 0),
	}

	p.extractDeclarations(rootNode, content, file)

	// Check context one final time
	if err := ctx.Err(); err != nil {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("parse canceled after extraction: %w", err)
	}

	setParseSpanResult(span, len(file.Classes), len(file.Aliases))
	recordParseMetrics(time.Since(start), true)

	return file, nil
}

// collectDiagnostics walks the tree and reports ERROR and MISSING nodes in
// document order, capped at maxDiagnostics. Subtrees without errors are
// skipped entirely.
func collectDiagnostics(root *sitter.Node, content []byte) ([]Diagnostic, bool) {
	diags := make([]Diagnostic, 0, 4)
	truncated := false

	var walk func(n *sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if len(diags) >= maxDiagnostics {
			truncated = true
			return false
		}
		if n.IsMissing() {
			diags = append(diags, Diagnostic{
				Line:    int(n.StartPoint().Row + 1),
				Col:     int(n.StartPoint().Column + 1),
				Message: fmt.Sprintf("missing %q", n.Type()),
			})
			return true
		}
		if n.Type() == "ERROR" {
			diags = append(diags, Diagnostic{
				Line:    int(n.StartPoint().Row + 1),
				Col:     int(n.StartPoint().Column + 1),
				Message: fmt.Sprintf("unexpected %q", errorSnippet(content, n)),
			})
			return true
		}
		if !n.HasError() {
			return true
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if !walk(n.Child(i)) {
				return false
			}
		}
		return true
	}
	walk(root)

	return diags, truncated
}

// errorSnippet renders a short excerpt of the text covered by an ERROR node.
func errorSnippet(content []byte, n *sitter.Node) string {
	const maxSnippet = 24
	text := strings.Join(strings.Fields(string(content[n.StartByte():n.EndByte()])), " ")
	if len(text) > maxSnippet {
		return text[:maxSnippet] + "..."
	}
	return text
}

// extractDeclarations collects top-level class and type alias declarations.
func (p *Parser) extractDeclarations(root *sitter.Node, content []byte, file *SourceFile) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "export_statement":
			p.processExportStatement(child, content, file)
		case "class_declaration", "abstract_class_declaration":
			if cls := p.processClass(child, content, false); cls != nil {
				file.Classes = append(file.Classes, cls)
			}
		case "type_alias_declaration":
			if alias := p.processTypeAlias(child, content, false); alias != nil {
				file.Aliases = append(file.Aliases, alias)
			}
		}
	}
}

// processExportStatement collects declarations nested in an export statement.
func (p *Parser) processExportStatement(node *sitter.Node, content []byte, file *SourceFile) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "class_declaration", "abstract_class_declaration":
			if cls := p.processClass(child, content, true); cls != nil {
				file.Classes = append(file.Classes, cls)
			}
		case "type_alias_declaration":
			if alias := p.processTypeAlias(child, content, true); alias != nil {
				file.Aliases = append(file.Aliases, alias)
			}
		}
	}
}

// processClass extracts a class declaration.
func (p *Parser) processClass(node *sitter.Node, content []byte, exported bool) *ClassDecl {
	var name string
	var extends string
	var implements []HeritageType
	var bodyNode *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "type_identifier":
			name = string(content[child.StartByte():child.EndByte()])
		case "class_heritage":
			extends, implements = p.extractClassHeritage(child, content)
		case "class_body":
			bodyNode = child
		}
	}

	if name == "" {
		return nil
	}

	cls := &ClassDecl{
		Name:       name,
		Exported:   exported,
		Extends:    extends,
		Implements: implements,
		Methods:    make([]*MethodDecl, 0),
		StartLine:  int(node.StartPoint().Row + 1),
	}

	if bodyNode != nil {
		for i := 0; i < int(bodyNode.ChildCount()); i++ {
			child := bodyNode.Child(i)
			if child.Type() == "method_definition" {
				if method := p.processMethod(child, content); method != nil {
					cls.Methods = append(cls.Methods, method)
				}
			}
		}
	}

	return cls
}

// extractClassHeritage extracts extends and implements from class heritage.
func (p *Parser) extractClassHeritage(node *sitter.Node, content []byte) (extends string, implements []HeritageType) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "extends_clause":
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				// Tree-sitter uses "identifier" for simple class names, "type_identifier" for type references
				if gc.Type() == "identifier" || gc.Type() == "type_identifier" || gc.Type() == "generic_type" {
					extends = renderNode(content, gc)
				}
			}
		case "implements_clause":
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				switch gc.Type() {
				case "type_identifier":
					text := string(content[gc.StartByte():gc.EndByte()])
					implements = append(implements, HeritageType{Head: text, Text: text})
				case "generic_type":
					implements = append(implements, HeritageType{
						Head: genericHead(gc, content),
						Text: renderNode(content, gc),
					})
				}
			}
		}
	}
	return
}

// genericHead extracts the base identifier of a generic type instantiation.
func genericHead(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "type_identifier" {
			return string(content[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

// processMethod extracts a method definition.
func (p *Parser) processMethod(node *sitter.Node, content []byte) *MethodDecl {
	var name string
	var isStatic bool
	var isAsync bool
	var isAccessor bool
	var params []*ParamDecl
	var returnType string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "static":
			isStatic = true
		case "async":
			isAsync = true
		case "get", "set":
			// Accessor keyword tokens. A method literally named "get" or
			// "set" surfaces as a property_identifier instead.
			isAccessor = true
		case "property_identifier":
			name = string(content[child.StartByte():child.EndByte()])
		case "formal_parameters":
			params = p.extractParameters(child, content)
		case "type_annotation":
			returnType = renderTypeAnnotation(content, child)
		}
	}

	if name == "" {
		return nil
	}

	return &MethodDecl{
		Name:       name,
		Static:     isStatic,
		Async:      isAsync,
		Accessor:   isAccessor,
		Params:     params,
		ReturnType: returnType,
		StartLine:  int(node.StartPoint().Row + 1),
	}
}

// extractParameters extracts formal parameters left to right.
func (p *Parser) extractParameters(node *sitter.Node, content []byte) []*ParamDecl {
	params := make([]*ParamDecl, 0, node.ChildCount())

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "required_parameter":
			params = append(params, p.processParameter(child, content, false))
		case "optional_parameter":
			params = append(params, p.processParameter(child, content, true))
		}
	}

	return params
}

// processParameter extracts one formal parameter.
//
// Field-based navigation is required here: a parameter's name and its
// default value can both be bare identifiers (e.g. "value = fallback"),
// so a positional type switch cannot tell them apart.
func (p *Parser) processParameter(node *sitter.Node, content []byte, optional bool) *ParamDecl {
	param := &ParamDecl{Optional: optional}

	if pattern := node.ChildByFieldName("pattern"); pattern != nil && pattern.Type() == "identifier" {
		param.Name = string(content[pattern.StartByte():pattern.EndByte()])
	}
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		param.Type = renderTypeAnnotation(content, typeNode)
	}
	if valueNode := node.ChildByFieldName("value"); valueNode != nil {
		param.Default = renderNode(content, valueNode)
	}

	return param
}

// processTypeAlias extracts a type alias declaration.
func (p *Parser) processTypeAlias(node *sitter.Node, content []byte, exported bool) *TypeAliasDecl {
	nameNode := node.ChildByFieldName("name")
	valueNode := node.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return nil
	}

	alias := &TypeAliasDecl{
		Name:      string(content[nameNode.StartByte():nameNode.EndByte()]),
		Exported:  exported,
		StartLine: int(node.StartPoint().Row + 1),
	}

	if valueNode.Type() == "object_type" {
		alias.Object = true
		alias.Fields = p.extractObjectFields(valueNode, content)
	}

	return alias
}

// extractObjectFields extracts property signatures from an object type literal.
func (p *Parser) extractObjectFields(body *sitter.Node, content []byte) []*FieldDecl {
	fields := make([]*FieldDecl, 0, body.ChildCount())

	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		if child.Type() != "property_signature" {
			continue
		}
		if field := p.processPropertySignature(child, content); field != nil {
			fields = append(fields, field)
		}
	}

	return fields
}

// processPropertySignature extracts one property signature.
func (p *Parser) processPropertySignature(node *sitter.Node, content []byte) *FieldDecl {
	var name string
	var typeStr string
	var isOptional bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "property_identifier":
			name = string(content[child.StartByte():child.EndByte()])
		case "?":
			isOptional = true
		case "type_annotation":
			typeStr = renderTypeAnnotation(content, child)
		}
	}

	if name == "" {
		return nil
	}

	return &FieldDecl{
		Name:     name,
		Type:     typeStr,
		Optional: isOptional,
	}
}
