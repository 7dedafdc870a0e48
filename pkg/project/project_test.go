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
package project_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/atomize"
	"github.com/asdl-hdl/asdlc/pkg/lower"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/project"
	"github.com/asdl-hdl/asdlc/pkg/symbol"
)

func buildSimpleDesign(t *testing.T) (*ast.Document, *lower.Builder) {
	t.Helper()

	dev := &ast.DeviceDecl{Name: "nmos", Ports: []string{"d", "g", "s"}}
	dev.Backends = ordmap.New[string, ast.DeviceBackendDecl]()
	dev.Backends.Set("spice", ast.DeviceBackendDecl{Template: "M{name}"})

	mod := &ast.ModuleDecl{Name: "inv"}
	mod.Instances = ordmap.New[string, ast.InstanceExpr]()
	mod.Instances.Set("m1", ast.InstanceExpr{Raw: "nmos"})
	mod.Nets = ordmap.New[string, ast.NetDecl]()
	mod.Nets.Set("out", ast.NetDecl{ImplicitPort: true, Endpoints: []ast.EndpointRef{{Expr: "m1.d"}}})
	mod.Nets.Set("in", ast.NetDecl{ImplicitPort: true, Endpoints: []ast.EndpointRef{{Expr: "m1.g"}}})

	doc := &ast.Document{File: "top.asdl"}
	doc.Devices = ordmap.New[string, *ast.DeviceDecl]()
	doc.Devices.Set("nmos", dev)
	doc.Modules = ordmap.New[string, *ast.ModuleDecl]()
	doc.Modules.Set("inv", mod)

	b := lower.NewBuilder()
	b.DefineSymbols(doc)
	env := symbol.NewNameEnv("top.asdl")
	require.Empty(t, b.Build(doc, env))
	return doc, b
}

func TestProjectBuildsInstancesAndNetsInDeclarationOrder(t *testing.T) {
	_, b := buildSimpleDesign(t)
	atomProg, derrs := atomize.Build(b.Program)
	require.Empty(t, derrs)

	design, derrs := project.Build(atomProg)
	require.Empty(t, derrs)

	require.Len(t, design.Modules, 1)
	mod := design.Modules[0]
	assert.Equal(t, "inv", mod.Name)
	assert.Equal(t, []string{"out", "in"}, mod.PortOrder)
	require.Len(t, mod.Instances, 1)

	inst := mod.Instances[0]
	assert.Equal(t, "m1", inst.Name)
	assert.Equal(t, "nmos", inst.Ref)
	assert.True(t, inst.IsDevice)
	net, ok := inst.Conns.Get("d")
	require.True(t, ok)
	assert.Equal(t, "out", net)
	net, ok = inst.Conns.Get("g")
	require.True(t, ok)
	assert.Equal(t, "in", net)

	require.Len(t, design.Devices, 1)
	assert.Equal(t, "nmos", design.Devices[0].Name)
}
