// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package wrappers extracts the public operation surface of TON contract
// wrapper classes for binding generation: the async send*/get* methods a
// generated binding exposes, the static factory capabilities, and the shape
// of the wrapper's config type. A single extraction is all-or-nothing
// (syntax errors and a missing createFromAddress fail the call); directory
// scans are best-effort and skip offending files with a warning.
package wrappers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/ton-community/tinfoil/services/scaffold/artifacts"
	"github.com/ton-community/tinfoil/services/scaffold/ast"
)

// Wrapper convention names. These come from the TON contract wrapper
// convention, not from anything configurable: dapp tooling calls the
// factories by exactly these names.
const (
	sendPrefix            = "send"
	getPrefix             = "get"
	configAliasSuffix     = "Config"
	contractInterfaceName = "Contract"
	providerParamName     = "provider"
	viaParamName          = "via"
	createFromConfigName  = "createFromConfig"
	createFromAddressName = "createFromAddress"

	// anyType is recorded for parameters that carry no type annotation.
	anyType = "any"
)

// Extractor turns one wrapper source file into a WrapperInfo.
//
// Description:
//
//	Extract reads the file, parses it, walks the tree for the target class,
//	and assembles the manifest entry. The walk (everything derived purely
//	from source text) is optionally cached in BadgerDB; the artifact lookup
//	and path normalization run on every call so build output changes are
//	always visible.
//
// Thread Safety: Safe for concurrent use after construction.
type Extractor struct {
	parser     *ast.Parser
	reader     artifacts.FileReader
	store      artifacts.ArtifactStore
	normalizer artifacts.PathNormalizer
	cache      WalkCacheStore
	logger     *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithParser overrides the default parser.
func WithParser(p *ast.Parser) ExtractorOption {
	return func(e *Extractor) { e.parser = p }
}

// WithFileReader overrides the default OS file reader.
func WithFileReader(r artifacts.FileReader) ExtractorOption {
	return func(e *Extractor) { e.reader = r }
}

// WithArtifactStore sets the compiled artifact store. Without one, CodeHex
// is always absent.
func WithArtifactStore(s artifacts.ArtifactStore) ExtractorOption {
	return func(e *Extractor) { e.store = s }
}

// WithPathNormalizer overrides the default slash-only path normalizer.
func WithPathNormalizer(n artifacts.PathNormalizer) ExtractorOption {
	return func(e *Extractor) { e.normalizer = n }
}

// WithWalkCache enables walk-result caching. Without one, every call walks.
func WithWalkCache(c WalkCacheStore) ExtractorOption {
	return func(e *Extractor) { e.cache = c }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor.
//
// Defaults: a fresh parser, the OS file reader, a slash-only path
// normalizer, no artifact store, no walk cache, slog.Default().
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		parser:     ast.NewParser(),
		reader:     artifacts.NewOSFileReader(),
		normalizer: artifacts.NewProjectPathNormalizer(""),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract builds the WrapperInfo for className as declared in the file at path.
//
// Description:
//
//	Fails with *ast.SyntaxError if the file does not parse cleanly, and with
//	*wrappers.MissingCapabilityError if the class (as matched by the wrapper
//	conventions) exposes no static createFromAddress. Artifact lookup
//	failures never fail the call; they only leave CodeHex absent.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	path - Wrapper source file path, absolute or relative.
//	className - Exact contract class name to extract.
//
// Outputs:
//
//	*WrapperInfo - The extracted surface. Nil on error.
//	error - Non-nil on read, parse, or capability failure.
//
// Thread Safety: Safe for concurrent use.
func (e *Extractor) Extract(ctx context.Context, path, className string) (*WrapperInfo, error) {
	start := time.Now()
	ctx, span := startExtractSpan(ctx, path, className)
	defer span.End()

	if className == "" {
		err := fmt.Errorf("wrappers.Extract: empty class name")
		span.SetStatus(codes.Error, err.Error())
		recordExtractMetrics(time.Since(start), false)
		return nil, err
	}

	content, err := e.reader.Read(ctx, path)
	if err != nil {
		err = fmt.Errorf("wrappers.Extract: %w", err)
		span.SetStatus(codes.Error, err.Error())
		recordExtractMetrics(time.Since(start), false)
		return nil, err
	}

	walk, cacheHit := e.loadCachedWalk(ctx, content, className)
	if walk == nil {
		file, parseErr := e.parser.Parse(ctx, content, path)
		if parseErr != nil {
			err = fmt.Errorf("wrappers.Extract: %w", parseErr)
			span.SetStatus(codes.Error, err.Error())
			recordExtractMetrics(time.Since(start), false)
			return nil, err
		}

		walk = walkSourceFile(file, className)
		e.saveCachedWalk(ctx, content, className, walk)
	}

	if !walk.CreateFromAddress {
		missingErr := &MissingCapabilityError{Class: className}
		span.SetStatus(codes.Error, missingErr.Error())
		recordExtractMetrics(time.Since(start), false)
		return nil, missingErr
	}

	info := &WrapperInfo{
		SendFunctions:          walk.SendFunctions,
		GetFunctions:           walk.GetFunctions,
		Path:                   e.normalizer.Normalize(path),
		CanBeCreatedFromConfig: walk.CreateFromConfig,
		ConfigType:             walk.ConfigType,
	}
	if walk.CreateFromConfig {
		info.CodeHex = e.lookupCodeHex(ctx, className)
	}

	setExtractSpanResult(span, info, cacheHit)
	recordExtractMetrics(time.Since(start), true)
	return info, nil
}

// loadCachedWalk consults the walk cache. A cache error degrades to a miss.
func (e *Extractor) loadCachedWalk(ctx context.Context, content []byte, className string) (*CachedWalk, bool) {
	if e.cache == nil {
		return nil, false
	}

	walk, err := e.cache.LoadWalk(ctx, computeWalkKey(content, className))
	if err != nil {
		e.logger.Warn("walk cache load failed, re-walking",
			slog.String("class", className),
			slog.String("error", err.Error()),
		)
		walkCacheMissesTotal.Inc()
		return nil, false
	}
	if walk == nil {
		walkCacheMissesTotal.Inc()
		return nil, false
	}

	walkCacheHitsTotal.Inc()
	return walk, true
}

// saveCachedWalk persists a walk result. A cache error is non-fatal.
func (e *Extractor) saveCachedWalk(ctx context.Context, content []byte, className string, walk *CachedWalk) {
	if e.cache == nil {
		return
	}

	if err := e.cache.SaveWalk(ctx, computeWalkKey(content, className), walk); err != nil {
		e.logger.Warn("walk cache save failed",
			slog.String("class", className),
			slog.String("error", err.Error()),
		)
	}
}

// lookupCodeHex resolves compiled code for the class, downgrading every
// failure (not found, IO, malformed artifact) to absence. The lookup can
// enrich a wrapper entry but never fail one.
func (e *Extractor) lookupCodeHex(ctx context.Context, className string) string {
	if e.store == nil {
		return ""
	}

	codeHex, err := e.store.Lookup(ctx, className)
	if err != nil {
		e.logger.Debug("wrapper artifact unavailable",
			slog.String("class", className),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return codeHex
}

// ============================================================================
// Walk Rules
// ============================================================================

// walkSourceFile applies the wrapper conventions to a parsed file.
//
// Description:
//
//	Pure function of the parse result and the target class name; this is
//	the unit the walk cache persists. An unmatched class yields empty
//	tables and false capability flags rather than an error, so the caller
//	decides how hard to fail.
func walkSourceFile(file *ast.SourceFile, className string) *CachedWalk {
	walk := &CachedWalk{
		SendFunctions: NewOperationTable(),
		GetFunctions:  NewOperationTable(),
	}

	walk.ConfigType = findConfigType(file.Aliases, className)

	class := findWrapperClass(file.Classes, className)
	if class == nil {
		return walk
	}

	for _, method := range class.Methods {
		if method.Accessor {
			continue
		}

		if method.Static {
			switch method.Name {
			case createFromConfigName:
				walk.CreateFromConfig = true
			case createFromAddressName:
				walk.CreateFromAddress = true
			}
			continue
		}

		if !method.Async {
			continue
		}

		var table *OperationTable
		dropVia := false
		switch {
		case strings.HasPrefix(method.Name, sendPrefix):
			table = walk.SendFunctions
			dropVia = true
		case strings.HasPrefix(method.Name, getPrefix):
			table = walk.GetFunctions
		default:
			continue
		}

		table.Set(method.Name, extractOperationParams(method.Params, dropVia))
	}

	return walk
}

// findWrapperClass returns the first class matching the wrapper conventions:
// exact name match and exactly one implemented interface whose head
// identifier is Contract (plain or generic).
func findWrapperClass(classes []*ast.ClassDecl, className string) *ast.ClassDecl {
	for _, class := range classes {
		if class.Name != className {
			continue
		}
		if len(class.Implements) != 1 {
			continue
		}
		if class.Implements[0].Head != contractInterfaceName {
			continue
		}
		return class
	}
	return nil
}

// findConfigType returns the first `<ClassName>Config` alias whose value is
// an object type, or nil when none exists. Aliases with the right name but
// a non-object shape (reference, union, generic) do not match.
func findConfigType(aliases []*ast.TypeAliasDecl, className string) *ConfigTypeInfo {
	target := className + configAliasSuffix

	for _, alias := range aliases {
		if alias.Name != target || !alias.Object {
			continue
		}

		info := NewConfigTypeInfo()
		for _, field := range alias.Fields {
			if field.Name == "" {
				continue
			}
			info.Set(field.Name, ConfigFieldInfo{
				FieldType: field.Type,
				Optional:  field.Optional,
			})
		}
		return info
	}

	return nil
}

// extractOperationParams maps declared parameters to the manifest form,
// left to right.
//
// Dropped: destructuring patterns (no extractable name), the provider
// parameter (injected by the binding), and for send operations the via
// parameter (the sender is supplied by the caller's wallet). A repeated
// name overwrites the recorded value but keeps its first position.
func extractOperationParams(params []*ast.ParamDecl, dropVia bool) *ParameterSet {
	set := NewParameterSet()

	for _, param := range params {
		if param.Name == "" {
			continue
		}
		if param.Name == providerParamName {
			continue
		}
		if dropVia && param.Name == viaParamName {
			continue
		}

		typeText := param.Type
		if typeText == "" {
			typeText = anyType
		}

		set.Set(param.Name, ParameterInfo{
			Type:         typeText,
			DefaultValue: param.Default,
			Optional:     param.Optional,
		})
	}

	return set
}
