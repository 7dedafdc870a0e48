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
package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
)

func TestDocumentPreservesModuleInsertionOrder(t *testing.T) {
	doc := &ast.Document{File: "top.asdl"}
	doc.Modules = ordmap.New[string, *ast.ModuleDecl]()
	doc.Modules.Set("b_module", &ast.ModuleDecl{Name: "b_module"})
	doc.Modules.Set("a_module", &ast.ModuleDecl{Name: "a_module"})

	assert.Equal(t, []string{"b_module", "a_module"}, doc.Modules.Keys())
}

func TestModuleDeclHoldsOrderedNets(t *testing.T) {
	mod := &ast.ModuleDecl{Name: "inverter"}
	mod.Nets = ordmap.New[string, ast.NetDecl]()
	mod.Nets.Set("out", ast.NetDecl{
		Endpoints: []ast.EndpointRef{{Expr: "m1.d"}, {Expr: "m2.d", Suppressed: true}},
	})

	net, ok := mod.Nets.Get("out")
	assert.True(t, ok)
	assert.Len(t, net.Endpoints, 2)
	assert.True(t, net.Endpoints[1].Suppressed)
}

func TestDeviceDeclBackendsNonEmptyInvariantIsCallerEnforced(t *testing.T) {
	dev := &ast.DeviceDecl{Name: "nmos", Ports: []string{"d", "g", "s", "b"}}
	dev.Backends = ordmap.New[string, ast.DeviceBackendDecl]()
	dev.Backends.Set("spice", ast.DeviceBackendDecl{Template: ".model {name} nmos"})

	assert.Equal(t, 1, dev.Backends.Len())
	backend, ok := dev.Backends.Get("spice")
	assert.True(t, ok)
	assert.Equal(t, ".model {name} nmos", backend.Template)
}
