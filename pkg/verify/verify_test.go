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
package verify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/netlist"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/render"
	"github.com/asdl-hdl/asdlc/pkg/verify"
)

func baseConfig() *render.Config {
	templates := map[string]string{
		"__netlist_header__":       "",
		"__netlist_footer__":       "",
		"__subckt_header__":        "{name} {ports}",
		"__subckt_header_params__": "{name} {ports} {params}",
		"__subckt_footer__":        "{name}",
		"__subckt_call__":          "{name} {ports} {ref}",
		"__subckt_call_params__":   "{name} {ports} {ref} {params}",
	}
	return &render.Config{BackendName: "spice", Templates: templates}
}

func buildDesign(t *testing.T) *netlist.Design {
	t.Helper()
	nmos := &netlist.Device{
		Name: "nmos", FileID: "f", Ports: []string{"d", "g", "s"},
		Params:   ordmap.New[string, ast.ParamValue](),
		Backends: ordmap.New[string, ast.DeviceBackendDecl](),
	}
	nmos.Backends.Set("spice", ast.DeviceBackendDecl{Template: "M{name} {ports} nmos {params}"})

	conns := ordmap.New[string, string]()
	conns.Set("d", "out")
	conns.Set("g", "in")
	conns.Set("s", "gnd")
	top := &netlist.Module{
		Name: "inv", FileID: "f", PortOrder: []string{"out", "in"},
		Instances: []*netlist.Instance{
			{Name: "m1", Ref: "nmos", RefFileID: "f", IsDevice: true, Conns: conns, Params: ordmap.New[string, string]()},
		},
	}
	return &netlist.Design{EntryFileID: "f", Top: "inv", Modules: []*netlist.Module{top}, Devices: []*netlist.Device{nmos}}
}

func TestVerifyCleanDesignProducesNoDiagnostics(t *testing.T) {
	design := buildDesign(t)
	diags := verify.Verify(design, "spice", baseConfig())
	assert.Empty(t, diags)
}

func TestVerifyMissingTopProducesDiagnostic(t *testing.T) {
	design := buildDesign(t)
	design.Top = "missing"
	diags := verify.Verify(design, "spice", baseConfig())
	require.Len(t, diags, 1)
	assert.Equal(t, verify.CodeMissingTop, diags[0].Code)
}

func TestVerifyMissingConnProducesDiagnosticWithSuggestion(t *testing.T) {
	design := buildDesign(t)
	design.Modules[0].Instances[0].Conns = ordmap.New[string, string]()
	design.Modules[0].Instances[0].Conns.Set("D", "out")
	design.Modules[0].Instances[0].Conns.Set("g", "in")

	diags := verify.Verify(design, "spice", baseConfig())

	var sawMissing, sawUnknown bool
	var suggestionNote string
	for _, d := range diags {
		if d.Code == verify.CodeMissingConn {
			sawMissing = true
		}
		if d.Code == verify.CodeUnknownConnPort {
			sawUnknown = true
			if len(d.Notes) > 0 {
				suggestionNote = d.Notes[len(d.Notes)-1]
			}
		}
	}
	assert.True(t, sawMissing, "expected a MISSING_CONN diagnostic for port 's'")
	assert.True(t, sawUnknown, "expected an UNKNOWN_CONN_PORT diagnostic for port 'D'")
	assert.Contains(t, suggestionNote, "did you mean 'd'")
}

func TestVerifyUnknownReferenceProducesDiagnostic(t *testing.T) {
	design := buildDesign(t)
	design.Modules[0].Instances[0].Ref = "ghost"
	diags := verify.Verify(design, "spice", baseConfig())
	require.NotEmpty(t, diags)
	assert.Equal(t, verify.CodeUnknownReference, diags[0].Code)
}

func TestVerifyMissingBackendProducesDiagnostic(t *testing.T) {
	design := buildDesign(t)
	diags := verify.Verify(design, "verilog", baseConfig())
	require.NotEmpty(t, diags)
	assert.Equal(t, verify.CodeMissingBackend, diags[0].Code)
}
