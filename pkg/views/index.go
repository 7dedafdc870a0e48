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
	"strings"

	"github.com/asdl-hdl/asdlc/pkg/atomized"
	"github.com/asdl-hdl/asdlc/pkg/patterned"
)

// Entry is one hierarchical instance discovered while walking the
// AtomizedGraph from its top module down through every module-instance
// (device instances are leaves and terminate the walk).
type Entry struct {
	// Path is the fully-qualified dotted instance path from the top
	// module's instance atoms downward, e.g. "m1.core.bias".
	Path string
	// InstanceName is this entry's own atom name (the last Path segment).
	InstanceName string
	// ParentModuleID is the atomized module this instance is declared in.
	ParentModuleID patterned.ModuleID
	// Cell is the target's base cell name, with any "@view" suffix present
	// on the declared target name stripped off.
	Cell string
	// DeclaredView is the view tag explicitly present on the target name
	// at declaration time, if any (e.g. "inverter@fast" -> "fast").
	DeclaredView string
	IsDevice     bool
}

// moduleIndex resolves an atomized instance's (TargetFileID, TargetName) back
// to the atomized.Module it instantiates, when the target is a module rather
// than a device leaf.
type moduleIndex map[string]*atomized.Module

func buildModuleIndex(prog *atomized.Program) moduleIndex {
	idx := make(moduleIndex)
	for _, e := range prog.Modules.Entries() {
		idx[e.Value.FileID+"::"+e.Value.Name] = e.Value
	}
	return idx
}

// splitCellView separates a declared target name's base cell from an
// explicit "@view" suffix, if present.
func splitCellView(name string) (cell, view string) {
	if i := strings.IndexByte(name, '@'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

// BuildIndex walks prog starting at its top module in preorder (a module's
// own instances appear before any of those instances' own children, and
// siblings appear in the module's instance-declaration order), producing one
// Entry per instantiated atom anywhere in the design hierarchy.
func BuildIndex(prog *atomized.Program) []Entry {
	idx := buildModuleIndex(prog)
	var entries []Entry
	top, ok := prog.Modules.Get(prog.TopModule)
	if !ok {
		return entries
	}
	visiting := map[patterned.ModuleID]bool{}
	walkModule(top, "", idx, &entries, visiting)
	return entries
}

func walkModule(mod *atomized.Module, prefix string, idx moduleIndex, entries *[]Entry, visiting map[patterned.ModuleID]bool) {
	if visiting[mod.ID] {
		return // instantiation cycle; the walk stops here without reporting it
	}
	visiting[mod.ID] = true
	defer delete(visiting, mod.ID)

	for _, e := range mod.Instances.Entries() {
		atom := e.Value
		path := atom.Name
		if prefix != "" {
			path = prefix + "." + atom.Name
		}
		cell, view := splitCellView(atom.TargetName)
		*entries = append(*entries, Entry{
			Path:           path,
			InstanceName:   atom.Name,
			ParentModuleID: mod.ID,
			Cell:           cell,
			DeclaredView:   view,
			IsDevice:       atom.IsDevice,
		})
		if atom.IsDevice {
			continue
		}
		if child, ok := idx[atom.TargetFileID+"::"+atom.TargetName]; ok {
			walkModule(child, path, idx, entries, visiting)
		}
	}
}
