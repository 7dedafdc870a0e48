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

// Package atomize lowers a patterned.Program (PatternedGraph) into an
// atomized.Program (AtomizedGraph) — component C5, §4.5: every pattern
// expression is expanded into concrete atoms, net-to-endpoint binding plans
// are applied, instance_defaults are merged in for ports left unbound by an
// explicit endpoint, and every atom and connection is tagged with
// PatternOrigin provenance.
//
// Grounded on the reference implementation's ir/patterns/atomize.py: the
// per-module abort-but-continue failure policy (one module's errors do not
// prevent atomizing its siblings), the literal-collision check performed
// separately over net atoms and instance atoms, and the atom-count
// broadcast rule for parameter and instance_defaults values (exactly 1, or
// exactly the owning instance's atom count).
package atomize

import (
	"fmt"

	"github.com/asdl-hdl/asdlc/pkg/atomized"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/pattern"
	"github.com/asdl-hdl/asdlc/pkg/patterned"
)

// Diagnostic codes for this package, domain-prefixed "ATM" per §7.
var (
	CodeVerifyFailed          = diag.Fmt("ATM", 1) // ATOMIZE_VERIFY_FAILED
	CodeUnknownEndpointInst   = diag.Fmt("ATM", 2) // UNKNOWN_ENDPOINT_INSTANCE
	CodeLiteralCollision      = diag.Fmt("ATM", 3) // LITERAL_COLLISION
	CodeProvenanceMetadataWarn = diag.Fmt("ATM", 4) // PROVENANCE_METADATA_WARNING
	CodeUnknownTarget         = diag.Fmt("ATM", 5)
)

// MaxAtoms bounds every pattern expansion performed during atomization.
const MaxAtoms = pattern.DefaultMaxAtoms

// targetIndex resolves (fileID, name) -> whether the declaration is a
// device, used to tag InstanceAtom.IsDevice.
type targetIndex struct {
	devices map[string]bool
}

func buildTargetIndex(prog *patterned.Program) *targetIndex {
	idx := &targetIndex{devices: make(map[string]bool)}
	for _, e := range prog.Devices.Entries() {
		idx.devices[e.Value.FileID+"::"+e.Value.Name] = true
	}
	return idx
}

func (t *targetIndex) isDevice(fileID, name string) bool {
	return t.devices[fileID+"::"+name]
}

// Build atomizes every module of prog into an atomized.Program. Per-module
// failures (ERROR/FATAL diagnostics) abort that module's atomization but do
// not prevent sibling modules from atomizing.
func Build(prog *patterned.Program) (*atomized.Program, []diag.Diagnostic) {
	var out []diag.Diagnostic
	result := atomized.NewProgram()
	result.Devices = prog.Devices
	result.TopModule = prog.TopModule

	for _, e := range prog.Modules.Entries() {
		mod, derrs := atomizeModule(prog, e.Value, buildTargetIndex(prog))
		out = append(out, derrs...)
		if mod != nil {
			result.Modules.Set(mod.ID, mod)
		}
	}

	return result, out
}

func exprRaw(prog *patterned.Program, id patterned.ExprID) (string, *diag.Span) {
	expr := prog.PatternExpressions[id]
	if expr == nil {
		return "", nil
	}
	return expr.Raw, expr.Span
}

func atomizeModule(prog *patterned.Program, mod *patterned.Module, idx *targetIndex) (*atomized.Module, []diag.Diagnostic) {
	var out []diag.Diagnostic

	namedPatterns := map[string]pattern.NamedPattern{}
	for _, e := range mod.NamedPatterns.Entries() {
		namedPatterns[e.Key] = e.Value
	}

	result := &atomized.Module{
		ID:        mod.ID,
		Name:      mod.Name,
		FileID:    mod.FileID,
		Nets:      ordmap.New[string, *atomized.NetAtom](),
		Instances: ordmap.New[string, *atomized.InstanceAtom](),
	}

	// instance_defaults keyed by the raw binding-name pattern text, so a
	// later pass over instances can find each instance's own defaults.
	defaultsByRaw := map[string]*ordmap.Map[string, string]{}
	for exprID, defs := range mod.InstanceDefaults {
		raw, _ := exprRaw(prog, exprID)
		defaultsByRaw[raw] = defs
	}

	// instanceAtomsByRef[instanceRefID] = ordered atom names for that
	// InstanceRef, needed to zip parameter/defaults broadcasts positionally.
	instanceAtomsByRef := map[patterned.InstanceID][]string{}

	for _, e := range mod.Instances.Entries() {
		inst := e.Value
		raw, span := exprRaw(prog, inst.NamePattern)
		expr, derrs := pattern.Parse(raw, namedPatterns, span)
		if len(derrs) > 0 {
			out = append(out, derrs...)
			continue
		}
		atoms, derrs := pattern.Expand(expr, MaxAtoms)
		if len(derrs) > 0 {
			out = append(out, derrs...)
			continue
		}

		isDevice := idx.isDevice(inst.TargetFileID, inst.TargetName)
		names := make([]string, 0, len(atoms))
		for _, atom := range atoms {
			if result.Instances.Has(atom.Literal) {
				out = append(out, diag.New(CodeLiteralCollision, diag.ERROR,
					fmt.Sprintf("Instance atom '%s' is declared more than once in module '%s'.", atom.Literal, mod.Name),
					span, "atomize"))
				continue
			}
			params, derrs := resolveAtomParams(inst.Params, atoms, atom, span)
			out = append(out, derrs...)
			result.Instances.Set(atom.Literal, &atomized.InstanceAtom{
				Name:         atom.Literal,
				TargetFileID: inst.TargetFileID,
				TargetName:   inst.TargetName,
				IsDevice:     isDevice,
				Params:       params,
				Origin:       atomized.PatternOrigin{ExprID: inst.NamePattern, BaseName: atom.BaseName, Parts: atom.Parts, Span: span},
			})
			names = append(names, atom.Literal)
		}
		instanceAtomsByRef[inst.ID] = names
	}

	implicitPortSeen := map[string]bool{}

	for _, e := range mod.Nets.Entries() {
		net := e.Value
		raw, span := exprRaw(prog, net.NamePattern)
		netExpr, derrs := pattern.Parse(raw, namedPatterns, span)
		if len(derrs) > 0 {
			out = append(out, derrs...)
			continue
		}
		netAtoms, derrs := pattern.Expand(netExpr, MaxAtoms)
		if len(derrs) > 0 {
			out = append(out, derrs...)
			continue
		}

		for _, atom := range netAtoms {
			if result.Nets.Has(atom.Literal) {
				out = append(out, diag.New(CodeLiteralCollision, diag.ERROR,
					fmt.Sprintf("Net atom '%s' is declared more than once in module '%s'.", atom.Literal, mod.Name),
					span, "atomize"))
				continue
			}
			result.Nets.Set(atom.Literal, &atomized.NetAtom{
				Name:   atom.Literal,
				Origin: atomized.PatternOrigin{ExprID: net.NamePattern, BaseName: atom.BaseName, Parts: atom.Parts, Span: span},
			})
			if net.ImplicitPort && !implicitPortSeen[atom.Literal] {
				implicitPortSeen[atom.Literal] = true
				result.PortOrder = append(result.PortOrder, atom.Literal)
			}
		}

		for _, ep := range net.Endpoints {
			epRaw, epSpan := exprRaw(prog, ep.Pattern)
			epExpr, derrs := pattern.Parse(epRaw, namedPatterns, epSpan)
			if len(derrs) > 0 {
				out = append(out, derrs...)
				continue
			}
			endpoints, derrs := pattern.ExpandEndpoint(epExpr, MaxAtoms)
			if len(derrs) > 0 {
				out = append(out, derrs...)
				continue
			}
			plan, derrs := pattern.Bind(netExpr, epExpr, MaxAtoms)
			if len(derrs) > 0 {
				out = append(out, derrs...)
				continue
			}
			for i, endpoint := range endpoints {
				if !result.Instances.Has(endpoint.Inst) {
					out = append(out, diag.New(CodeUnknownEndpointInst, diag.ERROR,
						fmt.Sprintf("Endpoint '%s.%s' references undeclared instance atom '%s'.", endpoint.Inst, endpoint.Pin, endpoint.Inst),
						epSpan, "atomize"))
					continue
				}
				netIdx := plan.MapIndex(i)
				if netIdx < 0 || netIdx >= len(netAtoms) {
					continue
				}
				netAtomName := netAtoms[netIdx].Literal
				result.Conns = append(result.Conns, atomized.Conn{
					Instance: endpoint.Inst, Pin: endpoint.Pin, Net: netAtomName,
					Origin: atomized.PatternOrigin{ExprID: ep.Pattern, BaseName: endpoint.Atom.BaseName, Parts: endpoint.Atom.Parts, Span: epSpan},
				})
			}
		}
	}

	out = append(out, applyInstanceDefaults(prog, mod, result, namedPatterns, defaultsByRaw, instanceAtomsByRef)...)

	if diag.HasError(out) {
		return nil, out
	}
	return result, out
}

func resolveAtomParams(params *ordmap.Map[string, string], atoms []pattern.Atom, atom pattern.Atom, span *diag.Span) (*ordmap.Map[string, string], []diag.Diagnostic) {
	var out []diag.Diagnostic
	resolved := ordmap.New[string, string]()
	if params == nil {
		return resolved, nil
	}
	index := atomIndex(atoms, atom)
	for _, e := range params.Entries() {
		value, derrs := resolveBroadcastValue(e.Value, len(atoms), index, span)
		out = append(out, derrs...)
		resolved.Set(e.Key, value)
	}
	return resolved, out
}

func atomIndex(atoms []pattern.Atom, target pattern.Atom) int {
	for i, a := range atoms {
		if a.Literal == target.Literal {
			return i
		}
	}
	return 0
}

// resolveBroadcastValue expands raw as a plain literal pattern expression
// whenever it contains pattern syntax, and requires the expansion to
// produce either exactly 1 atom (broadcast to every owning atom) or exactly
// instanceAtomCount atoms (one per owning atom, matched positionally).
func resolveBroadcastValue(raw string, instanceAtomCount, index int, span *diag.Span) (string, []diag.Diagnostic) {
	if !containsPatternSyntax(raw) {
		return raw, nil
	}
	expr, derrs := pattern.Parse(raw, nil, span)
	if len(derrs) > 0 {
		return raw, nil // not a pattern expression after all; treat literally
	}
	atoms, derrs := pattern.Expand(expr, MaxAtoms)
	if len(derrs) > 0 {
		return raw, derrs
	}
	switch {
	case len(atoms) == 1:
		return atoms[0].Literal, nil
	case len(atoms) == instanceAtomCount:
		return atoms[index].Literal, nil
	default:
		return raw, []diag.Diagnostic{diag.New(CodeVerifyFailed, diag.ERROR,
			fmt.Sprintf("Parameter value '%s' expands to %d atoms; expected 1 or %d.", raw, len(atoms), instanceAtomCount),
			span, "atomize")}
	}
}

func containsPatternSyntax(s string) bool {
	for _, r := range s {
		if r == '<' || r == ';' {
			return true
		}
	}
	return false
}

// applyInstanceDefaults merges each instance's default port->net bindings
// for ports not already bound by any explicit endpoint; an endpoint's "!"
// suppression flag is not consulted.
func applyInstanceDefaults(
	prog *patterned.Program,
	mod *patterned.Module,
	result *atomized.Module,
	namedPatterns map[string]pattern.NamedPattern,
	defaultsByRaw map[string]*ordmap.Map[string, string],
	instanceAtomsByRef map[patterned.InstanceID][]string,
) []diag.Diagnostic {
	var out []diag.Diagnostic

	explicit := map[string]bool{}
	for _, c := range result.Conns {
		explicit[c.Instance+"."+c.Pin] = true
	}

	for _, e := range mod.Instances.Entries() {
		inst := e.Value
		raw, span := exprRaw(prog, inst.NamePattern)
		defaults, ok := defaultsByRaw[raw]
		if !ok {
			continue
		}
		atomNames := instanceAtomsByRef[inst.ID]
		for _, d := range defaults.Entries() {
			port := d.Key
			for i, atomName := range atomNames {
				if explicit[atomName+"."+port] {
					continue
				}
				netValue, derrs := resolveBroadcastValue(d.Value, len(atomNames), i, span)
				out = append(out, derrs...)
				if !result.Nets.Has(netValue) {
					out = append(out, diag.New(CodeUnknownEndpointInst, diag.ERROR,
						fmt.Sprintf("instance_defaults binding '%s'='%s' references undeclared net atom.", port, netValue),
						span, "atomize"))
					continue
				}
				result.Conns = append(result.Conns, atomized.Conn{
					Instance: atomName, Pin: port, Net: netValue,
					Origin: atomized.PatternOrigin{ExprID: inst.NamePattern, Span: span},
				})
			}
		}
	}

	return out
}
