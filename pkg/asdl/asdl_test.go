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
package asdl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asdl-hdl/asdlc/pkg/asdl"
	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/render"
	"github.com/asdl-hdl/asdlc/pkg/verify"
)

func buildDoc(t *testing.T) *ast.Document {
	t.Helper()

	dev := &ast.DeviceDecl{Name: "nmos", Ports: []string{"d", "g", "s"}}
	dev.Params = ordmap.New[string, ast.ParamValue]()
	dev.Backends = ordmap.New[string, ast.DeviceBackendDecl]()
	dev.Backends.Set("spice", ast.DeviceBackendDecl{Template: "M{name} {ports} nmos {params}"})

	mod := &ast.ModuleDecl{Name: "inv"}
	mod.Instances = ordmap.New[string, ast.InstanceExpr]()
	mod.Instances.Set("m1", ast.InstanceExpr{Raw: "nmos"})
	mod.Nets = ordmap.New[string, ast.NetDecl]()
	mod.Nets.Set("out", ast.NetDecl{ImplicitPort: true, Endpoints: []ast.EndpointRef{{Expr: "m1.d"}}})
	mod.Nets.Set("in", ast.NetDecl{ImplicitPort: true, Endpoints: []ast.EndpointRef{{Expr: "m1.g"}}})
	mod.Nets.Set("gnd", ast.NetDecl{Endpoints: []ast.EndpointRef{{Expr: "m1.s"}}})

	doc := &ast.Document{File: "top.asdl", Top: "inv"}
	doc.Devices = ordmap.New[string, *ast.DeviceDecl]()
	doc.Devices.Set("nmos", dev)
	doc.Modules = ordmap.New[string, *ast.ModuleDecl]()
	doc.Modules.Set("inv", mod)
	return doc
}

func baseBackend() *render.Config {
	templates := map[string]string{}
	for _, name := range render.SystemTemplates {
		templates[name] = systemDefault(name)
	}
	return &render.Config{BackendName: "spice", Templates: templates}
}

func systemDefault(name string) string {
	switch name {
	case "__netlist_header__":
		return "* netlist for {top}"
	case "__netlist_footer__":
		return "* end {top}"
	case "__subckt_header__":
		return ".subckt {name} {ports}"
	case "__subckt_header_params__":
		return ".subckt {name} {ports} {params}"
	case "__subckt_footer__":
		return ".ends {name}"
	case "__subckt_call__":
		return "X{name} {ports} {ref}"
	case "__subckt_call_params__":
		return "X{name} {ports} {ref} {params}"
	default:
		return ""
	}
}

func TestCompileRunsFullPipelineAndRendersText(t *testing.T) {
	doc := buildDoc(t)
	backend := baseBackend()
	backend.TopAsSubckt = true
	result, diags := asdl.Compile(context.Background(), []*ast.Document{doc}, asdl.Options{Backend: backend})

	require.Empty(t, diags)
	require.NotNil(t, result.Design)
	assert.Equal(t, "inv", result.Design.Top)
	assert.Contains(t, result.Text, "* netlist for inv")
	assert.Contains(t, result.Text, ".subckt inv out in")
	assert.Contains(t, result.Text, "Mm1 out in gnd nmos")
	assert.Contains(t, result.Text, ".ends inv")
}

func TestCompileShortCircuitsOnLowerError(t *testing.T) {
	doc := buildDoc(t)
	doc.Top = "missing-module"

	result, diags := asdl.Compile(context.Background(), []*ast.Document{doc}, asdl.Options{Backend: baseBackend()})

	require.NotEmpty(t, diags)
	assert.Nil(t, result.Design)
	assert.Empty(t, result.Text)
	found := false
	for _, d := range diags {
		if d.Severity == diag.FATAL {
			found = true
		}
	}
	assert.True(t, found, "expected a FATAL diagnostic when the top module is undeclared")
}

func TestCompileShortCircuitsOnVerifyError(t *testing.T) {
	doc := buildDoc(t)
	backend := baseBackend()
	backend.BackendName = "verilog"

	result, diags := asdl.Compile(context.Background(), []*ast.Document{doc}, asdl.Options{Backend: backend})

	require.NotEmpty(t, diags)
	require.NotNil(t, result.Design)
	assert.Empty(t, result.Text, "render must not run once verify reports an error")
	found := false
	for _, d := range diags {
		if d.Code == verify.CodeMissingBackend {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompileReturnsCancelledDiagnostic(t *testing.T) {
	doc := buildDoc(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, diags := asdl.Compile(ctx, []*ast.Document{doc}, asdl.Options{Backend: baseBackend()})

	require.Len(t, diags, 1)
	assert.Equal(t, asdl.CodeCancelled, diags[0].Code)
}
