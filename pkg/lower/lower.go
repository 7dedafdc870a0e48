// Copyright ASDL Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package lower builds a patterned.Program (the PatternedGraph, component
// C4) from one or more resolved pkg/ast.Document values, a whole-program
// pkg/symbol.ProgramDB, and one pkg/symbol.NameEnv per file.
//
// It is grounded on the reference implementation's
// asdl.ast.instance_expr (inline "ref k=v ..." tokenization) and
// asdl.ast.named_patterns (`{var}` substitution, instance_defaults
// expansion) modules, adapted to Go's explicit-error-return idiom: where
// the Python original accumulates a shared diagnostics list across nested
// helper calls, each helper here returns its own diagnostics slice that the
// caller appends to the running build.
package lower

import (
	"fmt"
	"strings"

	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/ids"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/pattern"
	"github.com/asdl-hdl/asdlc/pkg/patterned"
	"github.com/asdl-hdl/asdlc/pkg/symbol"
)

// Diagnostic codes for this package, domain-prefixed "LOW" per §7.
var (
	CodeInvalidInstanceExpr    = diag.Fmt("LOW", 1) // INVALID_INSTANCE_EXPR
	CodeUndefinedModuleVar     = diag.Fmt("LOW", 2) // UNDEFINED_MODULE_VARIABLE
	CodeRecursiveModuleVar     = diag.Fmt("LOW", 3) // RECURSIVE_MODULE_VARIABLE
	CodeDefaultOverride        = diag.Fmt("LOW", 4) // DEFAULT_OVERRIDE (lint, INFO)
	CodeMultipleTopCandidates  = diag.Fmt("LOW", 5)
	CodeTopModuleNotFound      = diag.Fmt("LOW", 6)
)

// Builder accumulates a PatternedGraph across one or more documents sharing
// a single allocator and symbol table.
type Builder struct {
	Alloc   *ids.Allocator
	DB      *symbol.ProgramDB
	Program *patterned.Program
}

// NewBuilder constructs a Builder with a fresh allocator, symbol table and
// empty PatternedGraph.
func NewBuilder() *Builder {
	return &Builder{
		Alloc:   &ids.Allocator{},
		DB:      symbol.NewProgramDB(),
		Program: patterned.NewProgram(),
	}
}

// DefineSymbols registers every module and device declared in doc with the
// builder's ProgramDB, without yet lowering their bodies. This must run for
// every document in the import closure before any document's Build call, so
// cross-file references resolve regardless of processing order.
func (b *Builder) DefineSymbols(doc *ast.Document) {
	if doc.Modules != nil {
		for _, e := range doc.Modules.Entries() {
			b.DB.DefineModule(doc.File, e.Key)
		}
	}
	if doc.Devices != nil {
		for _, e := range doc.Devices.Entries() {
			b.DB.DefineDevice(doc.File, e.Key)
		}
	}
}

// Build lowers one document's module and device bodies into the builder's
// PatternedGraph.
func (b *Builder) Build(doc *ast.Document, env *symbol.NameEnv) []diag.Diagnostic {
	var out []diag.Diagnostic

	if doc.Devices != nil {
		for _, e := range doc.Devices.Entries() {
			out = append(out, b.lowerDevice(doc, e.Key, e.Value)...)
		}
	}
	if doc.Modules != nil {
		for _, e := range doc.Modules.Entries() {
			out = append(out, b.lowerModule(doc, env, e.Key, e.Value)...)
		}
	}

	top, derrs := b.resolveTop(doc)
	out = append(out, derrs...)
	if top != "" {
		b.Program.TopModule = patterned.ModuleID(top)
	}

	return out
}

func (b *Builder) resolveTop(doc *ast.Document) (string, []diag.Diagnostic) {
	if doc.Top == "" {
		if doc.Modules == nil || doc.Modules.Len() != 1 {
			return "", nil
		}
		name := doc.Modules.Keys()[0]
		return b.moduleID(doc.File, name), nil
	}
	if doc.Modules == nil || !doc.Modules.Has(doc.Top) {
		return "", []diag.Diagnostic{diag.New(CodeTopModuleNotFound, diag.FATAL,
			fmt.Sprintf("Top module '%s' is not declared in '%s'.", doc.Top, doc.File), nil, "lower")}
	}
	return b.moduleID(doc.File, doc.Top), nil
}

func (b *Builder) moduleID(fileID, name string) string {
	for _, e := range b.Program.Modules.Entries() {
		if e.Value.FileID == fileID && e.Value.Name == name {
			return string(e.Key)
		}
	}
	return fileID + "::" + name
}

func (b *Builder) lowerDevice(doc *ast.Document, name string, decl *ast.DeviceDecl) []diag.Diagnostic {
	id := patterned.DeviceID(b.Alloc.Next(ids.DevicePrefix))
	dev := &patterned.Device{
		ID:       id,
		Name:     name,
		FileID:   doc.File,
		Ports:    append([]string(nil), decl.Ports...),
		Params:   decl.Params,
		Backends: decl.Backends,
		Span:     decl.Span,
	}
	b.Program.Devices.Set(id, dev)
	b.Program.SourceSpans[string(id)] = decl.Span
	return nil
}

func (b *Builder) lowerModule(doc *ast.Document, env *symbol.NameEnv, name string, decl *ast.ModuleDecl) []diag.Diagnostic {
	var out []diag.Diagnostic

	id := patterned.ModuleID(b.Alloc.Next(ids.ModulePrefix))
	mod := &patterned.Module{
		ID:               id,
		Name:             name,
		FileID:           doc.File,
		NamedPatterns:    ordmap.New[string, pattern.NamedPattern](),
		Instances:        ordmap.New[patterned.InstanceID, *patterned.InstanceRef](),
		Nets:             ordmap.New[patterned.NetID, *patterned.NetRef](),
		InstanceDefaults: make(map[patterned.ExprID]*ordmap.Map[string, string]),
		Span:             decl.Span,
	}

	if decl.Patterns != nil {
		for _, e := range decl.Patterns.Entries() {
			mod.NamedPatterns.Set(e.Key, pattern.NamedPattern{Expr: e.Value.Expr, Tag: e.Value.Tag})
		}
	}

	vars := map[string]string{}
	if decl.Variables != nil {
		for _, e := range decl.Variables.Entries() {
			vars[e.Key] = e.Value
		}
	}

	if decl.Instances != nil {
		for _, e := range decl.Instances.Entries() {
			ref, derrs := b.lowerInstance(mod, env, e.Key, e.Value, vars)
			out = append(out, derrs...)
			if ref != nil {
				mod.Instances.Set(ref.ID, ref)
			}
		}
	}

	if decl.Nets != nil {
		for _, e := range decl.Nets.Entries() {
			ref, derrs := b.lowerNet(mod, e.Key, e.Value, vars)
			out = append(out, derrs...)
			if ref != nil {
				mod.Nets.Set(ref.ID, ref)
			}
		}
	}

	if decl.InstanceDefaults != nil {
		for _, e := range decl.InstanceDefaults.Entries() {
			nameID, derrs := b.registerExpr(mod.ID, e.Key, nil)
			out = append(out, derrs...)
			mod.InstanceDefaults[nameID] = e.Value
		}
	}

	b.Program.Modules.Set(id, mod)
	b.Program.SourceSpans[string(id)] = decl.Span
	return out
}

// lowerInstance parses an inline instance expression ("ref k=v ...") into a
// resolved target plus ordered parameters (grounded on
// asdl.ast.instance_expr.parse_inline_instance_expr).
func (b *Builder) lowerInstance(mod *patterned.Module, env *symbol.NameEnv, bindingName string, expr ast.InstanceExpr, vars map[string]string) (*patterned.InstanceRef, []diag.Diagnostic) {
	var out []diag.Diagnostic

	substituted, derrs := substituteVars(expr.Raw, vars, expr.Span)
	out = append(out, derrs...)
	if diag.HasError(out) {
		return nil, out
	}

	tokens, err := tokenize(substituted)
	if err != nil {
		return nil, append(out, diag.New(CodeInvalidInstanceExpr, diag.ERROR,
			fmt.Sprintf("Invalid instance expression '%s': %s.", expr.Raw, err), expr.Span, "lower"))
	}
	if len(tokens) == 0 {
		return nil, append(out, diag.New(CodeInvalidInstanceExpr, diag.ERROR,
			"Instance expression must start with a target reference.", expr.Span, "lower"))
	}

	ref := tokens[0]
	params := ordmap.New[string, string]()
	for _, tok := range tokens[1:] {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			return nil, append(out, diag.New(CodeInvalidInstanceExpr, diag.ERROR,
				fmt.Sprintf("Invalid instance param token '%s'; expected key=value.", tok), expr.Span, "lower"))
		}
		params.Set(key, value)
	}

	namePatternID, derrs2 := b.registerExpr(mod.ID, bindingName, expr.Span)
	out = append(out, derrs2...)

	target, derrs3 := symbol.Resolve(env, b.DB, ref, expr.Span)
	out = append(out, derrs3...)
	if diag.HasError(derrs3) {
		return nil, out
	}

	id := patterned.InstanceID(b.Alloc.Next(ids.InstancePrefix))
	instRef := &patterned.InstanceRef{
		ID:           id,
		NamePattern:  namePatternID,
		TargetFileID: target.FileID,
		TargetName:   target.Name,
		Params:       params,
		Span:         expr.Span,
	}
	b.Program.SourceSpans[string(id)] = expr.Span
	return instRef, out
}

func (b *Builder) lowerNet(mod *patterned.Module, bindingName string, decl ast.NetDecl, vars map[string]string) (*patterned.NetRef, []diag.Diagnostic) {
	var out []diag.Diagnostic

	namePatternID, derrs := b.registerExpr(mod.ID, bindingName, decl.Span)
	out = append(out, derrs...)

	endpoints := make([]patterned.EndpointExprRef, 0, len(decl.Endpoints))
	for _, ep := range decl.Endpoints {
		substituted, derrs2 := substituteVars(ep.Expr, vars, ep.Span)
		out = append(out, derrs2...)
		exprID, derrs3 := b.registerExpr(mod.ID, substituted, ep.Span)
		out = append(out, derrs3...)
		id := patterned.EndpointID(b.Alloc.Next(ids.EndpointPrefix))
		endpoints = append(endpoints, patterned.EndpointExprRef{
			ID: id, Pattern: exprID, Suppressed: ep.Suppressed, Span: ep.Span,
		})
		b.Program.SourceSpans[string(id)] = ep.Span
	}

	id := patterned.NetID(b.Alloc.Next(ids.NetPrefix))
	return &patterned.NetRef{
		ID: id, NamePattern: namePatternID, ImplicitPort: decl.ImplicitPort,
		Endpoints: endpoints, Span: decl.Span,
	}, out
}

func (b *Builder) registerExpr(mod patterned.ModuleID, raw string, span *diag.Span) (patterned.ExprID, []diag.Diagnostic) {
	id := patterned.ExprID(b.Alloc.Next(ids.ExpressionPrefix))
	b.Program.PatternExpressions[id] = &patterned.PatternExpr{ID: id, Raw: raw, Module: mod, Span: span}
	b.Program.PatternOrigins[id] = span
	return id, nil
}

// substituteVars replaces every "{name}" token in raw with vars[name],
// detecting undefined references and recursive references of any cycle
// length (grounded on named_patterns.py's variable-substitution pass, generalized
// to a full cycle check across the variable set).
func substituteVars(raw string, vars map[string]string, span *diag.Span) (string, []diag.Diagnostic) {
	if !strings.Contains(raw, "{") {
		return raw, nil
	}
	var out strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == '{' {
			close := strings.IndexByte(raw[i:], '}')
			if close == -1 {
				out.WriteString(raw[i:])
				break
			}
			name := raw[i+1 : i+close]
			value, derrs := resolveVar(name, vars, map[string]bool{}, span)
			if derrs != nil {
				return "", derrs
			}
			out.WriteString(value)
			i += close + 1
			continue
		}
		out.WriteByte(raw[i])
		i++
	}
	return out.String(), nil
}

func resolveVar(name string, vars map[string]string, visiting map[string]bool, span *diag.Span) (string, []diag.Diagnostic) {
	if visiting[name] {
		return "", []diag.Diagnostic{diag.New(CodeRecursiveModuleVar, diag.ERROR,
			fmt.Sprintf("Recursive module variable reference '%s'.", name), span, "lower")}
	}
	value, ok := vars[name]
	if !ok {
		return "", []diag.Diagnostic{diag.New(CodeUndefinedModuleVar, diag.ERROR,
			fmt.Sprintf("Undefined module variable '%s'.", name), span, "lower")}
	}
	if !strings.Contains(value, "{") {
		return value, nil
	}
	visiting[name] = true
	defer delete(visiting, name)
	return substituteVarsVisiting(value, vars, visiting, span)
}

func substituteVarsVisiting(raw string, vars map[string]string, visiting map[string]bool, span *diag.Span) (string, []diag.Diagnostic) {
	var out strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == '{' {
			close := strings.IndexByte(raw[i:], '}')
			if close == -1 {
				out.WriteString(raw[i:])
				break
			}
			name := raw[i+1 : i+close]
			value, derrs := resolveVar(name, vars, visiting, span)
			if derrs != nil {
				return "", derrs
			}
			out.WriteString(value)
			i += close + 1
			continue
		}
		out.WriteByte(raw[i])
		i++
	}
	return out.String(), nil
}

// tokenize splits an inline instance expression into whitespace-separated
// tokens, honoring single- and double-quoted substrings so that a quoted
// value may itself contain whitespace (e.g. cmd='.TRAN 0 10u'), mirroring
// asdl.ast.instance_expr's shlex-based tokenizer in spirit if not in the
// exact quoting dialect.
func tokenize(expr string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := byte(0)
	hasCur := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			inQuote = c
			hasCur = true
		case c == ' ' || c == '\t':
			if hasCur {
				tokens = append(tokens, cur.String())
				cur.Reset()
				hasCur = false
			}
		default:
			cur.WriteByte(c)
			hasCur = true
		}
	}
	if inQuote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if hasCur {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
