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

// Package project implements component C7 (§4.7): the deterministic
// projection of an AtomizedGraph — optionally already specialized by
// pkg/views — into a plain-named netlist.Design. No new information is
// produced here; this stage only reshapes what C5/C6 already resolved into
// the flat, render-ready form C8/C9 consume.
package project

import (
	"github.com/asdl-hdl/asdlc/pkg/atomized"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/netlist"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
)

// Build projects prog into a netlist.Design. Modules and devices are
// emitted in prog's own registration order (which is itself source
// declaration order, preserved end-to-end since C4); each module's
// instances and nets are emitted in atomized declaration order, and each
// instance's connections are emitted in the order pkg/atomize appended
// them (endpoint-id order, with instance_defaults bindings trailing any
// explicit ones for the same instance).
func Build(prog *atomized.Program) (*netlist.Design, []diag.Diagnostic) {
	var out []diag.Diagnostic

	design := &netlist.Design{Top: string(prog.TopModule)}

	if top, ok := prog.Modules.Get(prog.TopModule); ok {
		design.Top = top.Name
		design.EntryFileID = top.FileID
	}

	for _, e := range prog.Modules.Entries() {
		design.Modules = append(design.Modules, projectModule(e.Value))
	}
	for _, e := range prog.Devices.Entries() {
		d := e.Value
		design.Devices = append(design.Devices, &netlist.Device{
			Name: d.Name, FileID: d.FileID, Ports: d.Ports, Params: d.Params, Backends: d.Backends,
		})
	}

	return design, out
}

func projectModule(mod *atomized.Module) *netlist.Module {
	out := &netlist.Module{
		Name:      mod.Name,
		FileID:    mod.FileID,
		PortOrder: mod.PortOrder,
	}

	for _, e := range mod.Nets.Entries() {
		out.Nets = append(out.Nets, e.Key)
	}

	byInstance := map[string]*netlist.Instance{}
	for _, e := range mod.Instances.Entries() {
		atom := e.Value
		inst := &netlist.Instance{
			Name:      atom.Name,
			Ref:       atom.TargetName,
			RefFileID: atom.TargetFileID,
			IsDevice:  atom.IsDevice,
			Conns:     ordmap.New[string, string](),
			Params:    atom.Params,
			Origin:    atom.Origin,
		}
		byInstance[atom.Name] = inst
		out.Instances = append(out.Instances, inst)
	}

	for _, c := range mod.Conns {
		if inst, ok := byInstance[c.Instance]; ok {
			inst.Conns.Set(c.Pin, c.Net)
		}
	}

	return out
}
