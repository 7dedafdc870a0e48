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
package views

import (
	"fmt"

	"github.com/asdl-hdl/asdlc/pkg/atomized"
	"github.com/asdl-hdl/asdlc/pkg/diag"
)

// Diagnostic codes for this package, domain-prefixed "VEW" per §7.
var (
	CodeNoViewAvailable = diag.Fmt("VEW", 1) // NO_VIEW_AVAILABLE
	CodeAmbiguousRule   = diag.Fmt("VEW", 2) // AMBIGUOUS_VIEW_RULE
)

// Binding is the resolved view decision for one hierarchical instance.
type Binding struct {
	Entry Entry
	// View is the chosen view tag, or "" to mean the cell's default
	// (unsuffixed) backend/module definition.
	View string
}

// backendLister reports which view tags a cell actually has available, so
// the baseline resolution can skip view_order tokens the cell doesn't offer.
// A module cell offers the views named by the "cell@view" atomized.Module
// entries sharing its cell name (the module's FileID is not consulted); a
// device cell's backend keys are not modeled here, so cellViewSet treats
// every view of a device cell as available.
type backendLister interface {
	HasView(cell, view string) bool
}

// cellViewSet is a backendLister built directly off the "cell@view" module
// variants actually declared in the AtomizedGraph, plus every device cell
// (whose backend/view availability isn't modeled here and so is treated
// permissively: any view is considered available).
type cellViewSet struct {
	views   map[string]map[string]bool
	devices map[string]bool
}

func (s cellViewSet) HasView(cell, view string) bool {
	if s.devices[cell] {
		return true
	}
	return s.views[cell] != nil && s.views[cell][view]
}

// buildCellViewSet scans prog.Modules for "cell@view" entries sharing a
// common base cell, recording which views each base cell declares, and
// records every device cell name so device view checks are always
// permissive.
func buildCellViewSet(prog *atomized.Program) cellViewSet {
	set := cellViewSet{views: map[string]map[string]bool{}, devices: map[string]bool{}}
	for _, e := range prog.Modules.Entries() {
		cell, view := splitCellView(e.Value.Name)
		if set.views[cell] == nil {
			set.views[cell] = map[string]bool{"": true}
		}
		if view != "" {
			set.views[cell][view] = true
		}
	}
	for _, e := range prog.Devices.Entries() {
		set.devices[e.Value.Name] = true
	}
	return set
}

// Resolve computes the view binding for every hierarchical instance in prog
// under profile: each instance first gets a baseline view chosen by trying
// profile.ViewOrder in order against the set of views the instance's
// declared view (if any) and cell allow, then every rule in profile.Rules is
// applied in order, a later matching rule overriding an earlier one or the
// baseline. A rule matches via exactly one predicate: Path (exact
// hierarchical path match), Instance (leaf instance name match anywhere), or
// Module (target cell name match anywhere).
func Resolve(prog *atomized.Program, profile *Profile) ([]Binding, []diag.Diagnostic) {
	var out []diag.Diagnostic
	entries := BuildIndex(prog)
	views := buildCellViewSet(prog)

	bindings := make([]Binding, 0, len(entries))
	for _, e := range entries {
		view := baselineView(e, profile.ViewOrder, views)
		for _, r := range profile.Rules {
			if ruleMatches(r, e) {
				view = r.View
				if view == "default" {
					view = ""
				}
			}
		}
		bindings = append(bindings, Binding{Entry: e, View: view})
	}

	for _, b := range bindings {
		if b.View != "" && !views.HasView(b.Entry.Cell, b.View) && !b.Entry.IsDevice {
			out = append(out, diag.New(CodeNoViewAvailable, diag.WARNING,
				fmt.Sprintf("Instance '%s' resolved to view '%s', which cell '%s' does not declare; falling back to default.", b.Entry.Path, b.View, b.Entry.Cell),
				nil, "views"))
		}
	}

	return bindings, out
}

// baselineView returns the instance's own DeclaredView when it has one;
// otherwise it picks the first view_order token the instance's cell offers,
// with a "default" token, or no matching token at all, yielding "" (the
// cell's default definition).
func baselineView(e Entry, viewOrder []string, views cellViewSet) string {
	if e.DeclaredView != "" {
		return e.DeclaredView
	}
	for _, token := range viewOrder {
		if token == "default" {
			return ""
		}
		if views.HasView(e.Cell, token) {
			return token
		}
	}
	return ""
}

func ruleMatches(r Rule, e Entry) bool {
	switch r.Kind() {
	case "path":
		return r.Path == e.Path
	case "instance":
		return r.Instance == e.InstanceName
	case "module":
		return r.Module == e.Cell
	default:
		return false
	}
}
