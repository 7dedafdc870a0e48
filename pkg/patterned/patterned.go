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

// Package patterned holds the PatternedGraph (component C4 output, §3):
// the program after import resolution, reference binding and pattern
// registration, but before atomization. Node identities are the opaque,
// deterministically allocated IDs from pkg/ids; every pattern expression
// still lives in unexpanded form, with provenance recorded for the
// atomization stage (pkg/atomize) to consult.
//
// This mirrors the reference implementation's core.build_patterned_graph /
// core.graph module boundary: one immutable, whole-program graph assembled
// from per-file ASTs plus the resolved symbol table.
package patterned

import (
	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/pattern"
)

type ModuleID string
type DeviceID string
type NetID string
type InstanceID string
type EndpointID string
type ExprID string

// PatternExpr is a registered, not-yet-expanded pattern expression plus its
// provenance (the declaration site it came from).
type PatternExpr struct {
	ID     ExprID
	Raw    string
	Module ModuleID
	Span   *diag.Span
}

// InstanceRef is a resolved instance: a binding-name pattern expression plus
// the device or module it instantiates and its raw parameter tokens.
type InstanceRef struct {
	ID         InstanceID
	NamePattern ExprID
	// Target is the resolved module or device definition name, qualified
	// with its declaring file id so endpoint atomization can look up port
	// lists downstream (§4.3, §4.5).
	TargetFileID string
	TargetName   string
	// Params holds raw (not yet atom-count-validated) parameter tokens, in
	// declaration order.
	Params *ordmap.Map[string, string]
	Span   *diag.Span
}

// NetRef is a net binding: a name pattern expression bound to an ordered
// list of endpoint expressions.
type NetRef struct {
	ID           NetID
	NamePattern  ExprID
	ImplicitPort bool
	Endpoints    []EndpointExprRef
	Span         *diag.Span
}

// EndpointExprRef is one raw endpoint pattern expression within a net's
// endpoint list.
type EndpointExprRef struct {
	ID         EndpointID
	Pattern    ExprID
	Suppressed bool
	Span       *diag.Span
}

// Module is one module node of the patterned graph: its nets and instances,
// still pattern-expressed, plus the instance_defaults bindings that apply
// to them.
type Module struct {
	ID     ModuleID
	Name   string
	FileID string

	// NamedPatterns resolves a module's `patterns` block entries, so that
	// pattern.Parse can expand "<@name>" references found in this module's
	// instance/net/endpoint expressions during atomization.
	NamedPatterns *ordmap.Map[string, pattern.NamedPattern]

	Instances *ordmap.Map[InstanceID, *InstanceRef]
	Nets      *ordmap.Map[NetID, *NetRef]

	// InstanceDefaults maps an instance binding-name pattern expression id
	// to its default port->net bindings (raw pattern expression text).
	InstanceDefaults map[ExprID]*ordmap.Map[string, string]

	Span *diag.Span
}

// Device is one device node of the patterned graph, carried over from the
// AST mostly unchanged (devices have no pattern-bearing fields beyond their
// own backend parameter tables, which are not pattern expressions).
type Device struct {
	ID       DeviceID
	Name     string
	FileID   string
	Ports    []string
	Params   *ordmap.Map[string, ast.ParamValue]
	Backends *ordmap.Map[string, ast.DeviceBackendDecl]
	Span     *diag.Span
}

// Program is the whole-program PatternedGraph: every module and device
// across every resolved file, plus the registries needed to recover
// provenance for diagnostics and for the atomization stage.
type Program struct {
	Modules *ordmap.Map[ModuleID, *Module]
	Devices *ordmap.Map[DeviceID, *Device]

	// TopModule is the resolved elaboration root.
	TopModule ModuleID

	// PatternExpressions registers every PatternExpr by id (§3
	// "pattern_expressions").
	PatternExpressions map[ExprID]*PatternExpr

	// PatternOrigins maps an expression id to the source (file, path)
	// location it was declared at, for provenance-bearing diagnostics
	// downstream (§3 "pattern_origins").
	PatternOrigins map[ExprID]*diag.Span

	// ParamPatternOrigins records, for each instance id, which of its
	// parameter values were themselves pattern expressions requiring
	// atom-count validation against the instance's atom count (§3
	// "param_pattern_origins", §4.5).
	ParamPatternOrigins map[InstanceID]map[string]ExprID

	// SourceSpans is a flat index from any allocated id to its
	// originating span, used by diagnostics across every later stage.
	SourceSpans map[string]*diag.Span
}

// NewProgram constructs an empty PatternedGraph ready for population by
// pkg/lower.
func NewProgram() *Program {
	return &Program{
		Modules:             ordmap.New[ModuleID, *Module](),
		Devices:             ordmap.New[DeviceID, *Device](),
		PatternExpressions:  make(map[ExprID]*PatternExpr),
		PatternOrigins:      make(map[ExprID]*diag.Span),
		ParamPatternOrigins: make(map[InstanceID]map[string]ExprID),
		SourceSpans:         make(map[string]*diag.Span),
	}
}
