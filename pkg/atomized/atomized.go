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

// Package atomized holds the AtomizedGraph (component C5 output, §3, §4.5):
// the PatternedGraph after every pattern expression has been expanded into
// concrete literal atoms, every net-to-endpoint binding plan has been
// applied, and every atom carries PatternOrigin provenance back to the
// pattern expression (and declaration span) it was produced from.
//
// This mirrors the reference implementation's core.atomized_graph module
// boundary: a whole-program, fully-expanded graph with no further pattern
// algebra left to resolve downstream.
package atomized

import (
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/patterned"
)

// PatternOrigin records where one atom came from: the pattern expression it
// was expanded from, the literal-only base name of its segment, and the
// ordered substitution values (group/range labels) that produced it (§4.5).
type PatternOrigin struct {
	ExprID   patterned.ExprID
	BaseName string
	Parts    []string
	Span     *diag.Span
}

// NetAtom is one expanded net connection point.
type NetAtom struct {
	Name   string
	Origin PatternOrigin
}

// InstanceAtom is one expanded instance: a concrete name bound to a
// resolved device or module target, with atom-count-validated parameters.
type InstanceAtom struct {
	Name         string
	TargetFileID string
	TargetName   string
	IsDevice     bool
	Params       *ordmap.Map[string, string]
	Origin       PatternOrigin
}

// Conn is one resolved (instance atom, pin) -> net atom connection, the
// atomized form of an endpoint.
type Conn struct {
	Instance string
	Pin      string
	Net      string
	Origin   PatternOrigin
}

// Module is one atomized module: its ports (implicit ports discovered from
// net bindings marked ImplicitPort, in first-discovery order), its net and
// instance atoms, and the connections between them.
type Module struct {
	ID     patterned.ModuleID
	Name   string
	FileID string

	PortOrder []string

	Nets      *ordmap.Map[string, *NetAtom]
	Instances *ordmap.Map[string, *InstanceAtom]
	Conns     []Conn
}

// Program is the whole-program AtomizedGraph.
type Program struct {
	Modules   *ordmap.Map[patterned.ModuleID, *Module]
	Devices   *ordmap.Map[patterned.DeviceID, *patterned.Device]
	TopModule patterned.ModuleID
}

// NewProgram constructs an empty AtomizedGraph.
func NewProgram() *Program {
	return &Program{
		Modules: ordmap.New[patterned.ModuleID, *Module](),
		Devices: ordmap.New[patterned.DeviceID, *patterned.Device](),
	}
}
