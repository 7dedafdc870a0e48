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
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/asdl-hdl/asdlc/pkg/atomized"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/patterned"
)

// Apply specializes prog according to the view bindings Resolve computed:
// every non-device module instance reachable from the top is cloned under a
// module ID and file id derived from its hierarchical path, whether or not
// any binding changes it, and a clone's instance atoms are repointed at the
// "cell@view" module its binding names. No module is shared between two
// occurrences. The top module is copied under its own ID, since nothing
// instantiates it.
func Apply(prog *atomized.Program, bindings []Binding) (*atomized.Program, []diag.Diagnostic) {
	var out []diag.Diagnostic
	byPath := map[string]Binding{}
	for _, b := range bindings {
		byPath[b.Entry.Path] = b
	}
	idx := buildModuleIndex(prog)

	result := atomized.NewProgram()
	result.Devices = prog.Devices
	result.TopModule = prog.TopModule

	top, ok := prog.Modules.Get(prog.TopModule)
	if !ok {
		return prog, out
	}
	cloned := cloneModule(idx, top, "", byPath, result, &out)
	result.Modules.Set(cloned.ID, cloned)
	return result, out
}

// cloneModule produces a path-specialized copy of mod, recursing into every
// non-device child instance so descendant view overrides can also take
// effect, and registers every clone (including nested ones) into result.
func cloneModule(idx moduleIndex, mod *atomized.Module, prefix string, byPath map[string]Binding, result *atomized.Program, out *[]diag.Diagnostic) *atomized.Module {
	clone := &atomized.Module{
		ID:        mod.ID,
		Name:      mod.Name,
		FileID:    mod.FileID,
		PortOrder: mod.PortOrder,
		Nets:      mod.Nets,
		Instances: ordmap.New[string, *atomized.InstanceAtom](),
		Conns:     mod.Conns,
	}

	for _, e := range mod.Instances.Entries() {
		atom := e.Value
		path := atom.Name
		if prefix != "" {
			path = prefix + "." + atom.Name
		}

		newAtom := *atom
		if atom.IsDevice {
			clone.Instances.Set(e.Key, &newAtom)
			continue
		}

		targetFileID, targetName := atom.TargetFileID, atom.TargetName
		if b, ok := byPath[path]; ok && b.View != "" {
			cell, _ := splitCellView(atom.TargetName)
			if variant, ok := idx[atom.TargetFileID+"::"+cell+"@"+b.View]; ok {
				targetFileID, targetName = variant.FileID, variant.Name
			}
		}

		child, ok := idx[targetFileID+"::"+targetName]
		if !ok {
			clone.Instances.Set(e.Key, &newAtom)
			continue
		}

		childClone := cloneModule(idx, child, path, byPath, result, out)
		childClone.ID = patterned.ModuleID(fmt.Sprintf("%s$%s", childClone.Name, shortHash(path)))
		childClone.FileID = fmt.Sprintf("%s$%s", targetFileID, shortHash(path))
		result.Modules.Set(childClone.ID, childClone)
		newAtom.TargetFileID = childClone.FileID
		newAtom.TargetName = childClone.Name
		clone.Instances.Set(e.Key, &newAtom)
	}

	return clone
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:4])
}
