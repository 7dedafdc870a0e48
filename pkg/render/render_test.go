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
package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/netlist"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/render"
)

func baseConfig() *render.Config {
	templates := map[string]string{}
	for _, name := range render.SystemTemplates {
		templates[name] = systemDefault(name)
	}
	return &render.Config{BackendName: "spice", TopAsSubckt: false, Templates: templates}
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

func buildDesign() *netlist.Design {
	nmos := &netlist.Device{
		Name: "nmos", FileID: "f", Ports: []string{"d", "g", "s"},
		Params:   ordmap.New[string, ast.ParamValue](),
		Backends: ordmap.New[string, ast.DeviceBackendDecl](),
	}
	nmos.Backends.Set("spice", ast.DeviceBackendDecl{Template: "M{name} {ports} nmos {params}"})

	leaf := &netlist.Module{Name: "leaf", FileID: "f", PortOrder: []string{"a", "b"}}
	m1Conns := ordmap.New[string, string]()
	m1Conns.Set("d", "a")
	m1Conns.Set("g", "b")
	m1Conns.Set("s", "gnd")
	leaf.Instances = []*netlist.Instance{
		{Name: "m1", Ref: "nmos", RefFileID: "f", IsDevice: true, Conns: m1Conns, Params: ordmap.New[string, string]()},
	}
	leaf.Nets = []string{"a", "b", "gnd"}

	top := &netlist.Module{Name: "top", FileID: "f", PortOrder: []string{"x", "y"}}
	u1Conns := ordmap.New[string, string]()
	u1Conns.Set("a", "x")
	u1Conns.Set("b", "y")
	top.Instances = []*netlist.Instance{
		{Name: "u1", Ref: "leaf", RefFileID: "f", IsDevice: false, Conns: u1Conns, Params: ordmap.New[string, string]()},
	}
	top.Nets = []string{"x", "y"}

	return &netlist.Design{
		EntryFileID: "f", Top: "top",
		Modules: []*netlist.Module{leaf, top},
		Devices: []*netlist.Device{nmos},
	}
}

func TestRenderEmitsHeaderModulesAndFooterInReachableOrder(t *testing.T) {
	design := buildDesign()
	cfg := baseConfig()

	text, diags := render.Render(design, cfg)
	require.Empty(t, diags)

	assert.Contains(t, text, "* netlist for top")
	assert.Contains(t, text, ".subckt leaf a b")
	assert.Contains(t, text, "Xu1 x y leaf")
	assert.Contains(t, text, ".ends leaf")
	assert.Contains(t, text, "* end top")

	leafIdx := indexOf(t, text, ".subckt leaf")
	topUseIdx := indexOf(t, text, "Xu1")
	assert.Less(t, leafIdx, topUseIdx, "leaf subckt must be emitted before it is instantiated")
}

func TestRenderMissingTopProducesDiagnostic(t *testing.T) {
	design := buildDesign()
	design.Top = "missing"
	cfg := baseConfig()

	text, diags := render.Render(design, cfg)
	assert.Empty(t, text)
	require.NotEmpty(t, diags)
	assert.Equal(t, diag.ERROR, diags[0].Severity)
}

func TestRenderDeviceMissingBackendProducesDiagnostic(t *testing.T) {
	design := buildDesign()
	cfg := baseConfig()
	cfg.BackendName = "verilog"

	text, diags := render.Render(design, cfg)
	assert.Empty(t, text)
	require.NotEmpty(t, diags)
	found := false
	for _, d := range diags {
		if d.Code == render.CodeMissingBackend {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRenderUnknownInstanceParamWarnsAndDrops(t *testing.T) {
	design := buildDesign()
	leaf := design.Modules[0]
	leaf.Instances[0].Params.Set("bogus", "1")

	cfg := baseConfig()
	text, diags := render.Render(design, cfg)
	require.NotEmpty(t, text)

	found := false
	for _, d := range diags {
		if d.Code == render.CodeUnknownInstanceParam {
			found = true
		}
	}
	assert.True(t, found)
	assert.NotContains(t, text, "bogus")
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	t.Fatalf("expected %q to contain %q", haystack, needle)
	return -1
}
