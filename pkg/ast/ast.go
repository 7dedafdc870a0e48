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

// Package ast defines the surface syntax tree for a single ASDL source file
// (§3 "Data Model"). It mirrors the reference implementation's
// asdl.ast.models document shape (imports / top / modules / devices), widened
// to carry the pattern-bearing fields (`patterns`, `instance_defaults`,
// `variables`) the distilled model adds on top of that surface.
//
// Unlike the Python original, AST nodes here carry no validation logic of
// their own: structural validation happens once, at parse time, and semantic
// validation happens in pkg/lower. This keeps the tree a plain data carrier,
// in the same spirit as go-corset's pkg/corset/ast nodes.
package ast

import (
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
)

// ParamValue is a typed device/instance parameter literal.
type ParamValue struct {
	// Kind is one of "int", "float", "bool", "string".
	Kind   string
	Int    int64
	Float  float64
	Bool   bool
	String string
}

// InstanceExpr is the raw, unparsed inline instance expression text, e.g.
// "nmos w=1u l=0.1u". Parsing into (ref, params) happens in pkg/lower.
type InstanceExpr struct {
	Raw  string
	Span *diag.Span
}

// Document is one parsed ASDL source file.
type Document struct {
	File string

	// Imports maps a local namespace alias to a file path or library
	// reference, in declaration order.
	Imports *ordmap.Map[string, ImportDecl]

	// Top names the module to elaborate as the design root. Required when
	// more than one module is declared in this document.
	Top string

	Modules *ordmap.Map[string, *ModuleDecl]
	Devices *ordmap.Map[string, *DeviceDecl]

	Span *diag.Span
}

// ImportDecl is one entry of the `imports` block.
type ImportDecl struct {
	Target string
	Span   *diag.Span
}

// ModuleDecl is a structural module definition: a named-pattern dictionary,
// a set of instances, a set of nets (each a pattern-expanded endpoint list),
// optional per-binding instance defaults, and optional module-level
// variables available for `{var}` substitution.
type ModuleDecl struct {
	Name string

	// Patterns maps a named-pattern identifier to its single-group
	// definition text (e.g. "<0|1>"), referenced elsewhere as "<@name>".
	Patterns *ordmap.Map[string, PatternDecl]

	// Instances maps an instance-binding name (itself a pattern expression)
	// to its inline instance expression.
	Instances *ordmap.Map[string, InstanceExpr]

	// Nets maps a net-binding name (a pattern expression) to its endpoint
	// list (each entry a pattern expression of the form "<inst>.<pin>",
	// optionally prefixed "!", which pkg/docfile records as
	// EndpointRef.Suppressed).
	Nets *ordmap.Map[string, NetDecl]

	// InstanceDefaults maps an instance-binding name to a set of default
	// port-to-net bindings applied to every atom of that instance for each
	// port no explicit endpoint binds (§4.1, §9).
	InstanceDefaults *ordmap.Map[string, *ordmap.Map[string, string]]

	// Variables holds module-scoped `{var}` substitution values, resolved
	// before pattern parsing (§4.1).
	Variables *ordmap.Map[string, string]

	Span *diag.Span
}

// PatternDecl is one named-pattern definition.
type PatternDecl struct {
	Expr string
	// Tag is the optional explicit axis tag used for named-axis broadcast
	// binding; when empty the pattern's own name is the axis id.
	Tag  string
	Span *diag.Span
}

// NetDecl is one net binding: a pattern-expanded name bound to an ordered
// endpoint list.
type NetDecl struct {
	// ImplicitPort is true when the net is an implicit module port
	// (pkg/docfile reads it from a net entry's implicit_port field).
	ImplicitPort bool
	Endpoints    []EndpointRef
	Span         *diag.Span
}

// EndpointRef is one raw endpoint token from a net's endpoint list.
type EndpointRef struct {
	Expr string
	// Suppressed is true when the token carries the "!" prefix. It is
	// carried into the PatternedGraph; atomization does not consult it, so
	// instance_defaults apply the same way with or without it.
	Suppressed bool
	Span       *diag.Span
}

// DeviceDecl is a leaf device (primitive) definition: its port list,
// optional typed parameters, and one or more named backend renderings.
type DeviceDecl struct {
	Name string

	Ports []string

	Params *ordmap.Map[string, ParamValue]

	// Backends maps a backend name (e.g. "spice", "verilog") to its
	// rendering rule. Must be non-empty.
	Backends *ordmap.Map[string, DeviceBackendDecl]

	Span *diag.Span
}

// DeviceBackendDecl is one named backend rendering rule for a device.
type DeviceBackendDecl struct {
	Template string

	Params *ordmap.Map[string, ParamValue]

	// Variables holds backend-scoped `{var}` substitution values available
	// to Template in addition to Params (§4.8).
	Variables *ordmap.Map[string, string]

	// Props carries backend-specific metadata unknown to the core pipeline
	// (e.g. simulator directives), passed through to rendering unchanged.
	Props *ordmap.Map[string, string]

	Span *diag.Span
}
