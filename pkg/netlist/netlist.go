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

// Package netlist holds the NetlistIR (component C7 output, §3, §4.7): the
// AtomizedGraph, and optionally the view-specialized AtomizedGraph,
// projected into a plain-named, render-ready design with deterministic
// module/device/instance/net ordering. Nothing downstream of this package
// deals in pattern expressions, opaque graph IDs, or view profiles — it is
// the last shared representation before backend-specific rendering (C8).
package netlist

import (
	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/atomized"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
)

// Instance is one plain-named instantiation: a resolved reference (to a
// module or a device, disambiguated by RefFileID when names collide across
// files), its connections keyed by port name, merged parameters, and the
// PatternOrigin provenance of the atom it was expanded from.
type Instance struct {
	Name      string
	Ref       string
	RefFileID string
	IsDevice  bool
	Conns     *ordmap.Map[string, string]
	Params    *ordmap.Map[string, string]
	Origin    atomized.PatternOrigin
}

// Module is one plain-named module: its declared port order, its
// instances (in atomized declaration order), and its net names (in
// atomized declaration order).
type Module struct {
	Name      string
	FileID    string
	PortOrder []string
	Instances []*Instance
	Nets      []string
}

// Device is one plain-named device leaf, carried over from the
// AtomizedGraph/PatternedGraph with its backend table intact for C8 to
// consult.
type Device struct {
	Name     string
	FileID   string
	Ports    []string
	Params   *ordmap.Map[string, ast.ParamValue]
	Backends *ordmap.Map[string, ast.DeviceBackendDecl]
}

// Design is the whole-program NetlistIR: the resolved top module plus every
// module and device, in their original declaration order.
type Design struct {
	EntryFileID string
	Top         string
	Modules     []*Module
	Devices     []*Device
}
