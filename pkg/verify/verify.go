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

// Package verify implements component C9 (§4.9): a read-only pass over a
// netlist.Design that reports port-set mismatches, unresolved references,
// missing backends, and template/placeholder problems without mutating
// anything it inspects. It runs after C7 projection and before C8
// rendering so a broken design is reported with file:line-free, symbolic
// diagnostics instead of failing mid-render.
package verify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/netlist"
	"github.com/asdl-hdl/asdlc/pkg/render"
)

// Diagnostic codes this package raises, domain-prefixed "VER" per §7.
var (
	CodeMissingTop       = diag.Fmt("VER", 1) // MISSING_TOP
	CodeMissingConn      = diag.Fmt("VER", 2) // MISSING_CONN
	CodeUnknownConnPort  = diag.Fmt("VER", 3) // UNKNOWN_CONN_PORT
	CodeUnknownReference = diag.Fmt("VER", 4) // UNKNOWN_REFERENCE
	CodeMissingBackend   = diag.Fmt("VER", 5) // MISSING_BACKEND
)

const maxPortPreview = 8
const maxPortMatchScan = 200

type symbolIndex struct {
	modulesByName map[string][]*netlist.Module
	modulesByKey  map[string]*netlist.Module
	devicesByName map[string][]*netlist.Device
	devicesByKey  map[string]*netlist.Device
}

func buildSymbolIndex(design *netlist.Design) *symbolIndex {
	idx := &symbolIndex{
		modulesByName: map[string][]*netlist.Module{},
		modulesByKey:  map[string]*netlist.Module{},
		devicesByName: map[string][]*netlist.Device{},
		devicesByKey:  map[string]*netlist.Device{},
	}
	for _, m := range design.Modules {
		idx.modulesByName[m.Name] = append(idx.modulesByName[m.Name], m)
		idx.modulesByKey[m.FileID+"::"+m.Name] = m
	}
	for _, d := range design.Devices {
		idx.devicesByName[d.Name] = append(idx.devicesByName[d.Name], d)
		idx.devicesByKey[d.FileID+"::"+d.Name] = d
	}
	return idx
}

func selectModule(idx *symbolIndex, name, fileID string) *netlist.Module {
	if fileID != "" {
		if m, ok := idx.modulesByKey[fileID+"::"+name]; ok {
			return m
		}
	}
	if candidates := idx.modulesByName[name]; len(candidates) == 1 {
		return candidates[0]
	}
	return nil
}

func selectDevice(idx *symbolIndex, name, fileID string) *netlist.Device {
	if fileID != "" {
		if d, ok := idx.devicesByKey[fileID+"::"+name]; ok {
			return d
		}
	}
	if candidates := idx.devicesByName[name]; len(candidates) == 1 {
		return candidates[0]
	}
	return nil
}

func caseInsensitiveMatch(target string, candidates []string, maxScan int) string {
	lower := strings.ToLower(target)
	match := ""
	for i, candidate := range candidates {
		if i >= maxScan {
			return ""
		}
		if candidate == target {
			continue
		}
		if strings.ToLower(candidate) == lower {
			if match != "" && match != candidate {
				return ""
			}
			match = candidate
		}
	}
	return match
}

// orderedConns validates that instance's conns exactly cover portOrder,
// appending MISSING_CONN/UNKNOWN_CONN_PORT diagnostics (with a
// case-insensitive "did you mean" note) to diags and reporting whether any
// error occurred. Mirrors original_source's _ordered_conns_netlist_ir.
func orderedConns(instanceName string, inst *netlist.Instance, portOrder []string, diags *[]diag.Diagnostic) bool {
	hadError := false
	portSet := map[string]bool{}
	for _, p := range portOrder {
		portSet[p] = true
	}

	var missing []string
	for _, p := range portOrder {
		if !inst.Conns.Has(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		*diags = append(*diags, diag.New(CodeMissingConn, diag.ERROR,
			fmt.Sprintf("Instance '%s' is missing conns for ports: %s", instanceName, strings.Join(missing, ", ")),
			nil, "verify"))
		hadError = true
	}

	var unknown []string
	for _, e := range inst.Conns.Entries() {
		if !portSet[e.Key] {
			unknown = append(unknown, e.Key)
		}
	}
	if len(unknown) > 0 {
		var notes []string
		preview := portOrder
		truncated := false
		if len(preview) > maxPortPreview {
			preview = preview[:maxPortPreview]
			truncated = true
		}
		if len(preview) > 0 {
			notes = append(notes, "Valid ports are: "+strings.Join(preview, ", "))
			if truncated {
				notes = append(notes, "See the symbol definition for the full port list.")
			}
		}
		for _, port := range unknown {
			if m := caseInsensitiveMatch(port, portOrder, maxPortMatchScan); m != "" {
				notes = append(notes, fmt.Sprintf("Port names are case-sensitive; did you mean '%s'?", m))
				break
			}
		}
		d := diag.New(CodeUnknownConnPort, diag.ERROR,
			fmt.Sprintf("Instance '%s' has conns for unknown ports: %s", instanceName, strings.Join(unknown, ", ")),
			nil, "verify")
		d = d.WithHelp("Update endpoint names to match the device/module port list.")
		if len(notes) > 0 {
			d = d.WithNotes(notes...)
		}
		*diags = append(*diags, d)
		hadError = true
	}

	return hadError
}

// Verify runs the C9 checks against design for the named backend, using
// cfg's system/device templates for template validation, and returns every
// diagnostic produced. It never mutates design.
func Verify(design *netlist.Design, backendName string, cfg *render.Config) []diag.Diagnostic {
	var diags []diag.Diagnostic
	idx := buildSymbolIndex(design)

	top := selectModule(idx, design.Top, design.EntryFileID)
	if top == nil {
		diags = append(diags, diag.New(CodeMissingTop, diag.ERROR,
			fmt.Sprintf("Top module '%s' is not defined in entry file", design.Top), nil, "verify"))
		return diags
	}

	diags = append(diags, render.ValidateSystemDeviceTemplates(cfg)...)

	for _, m := range design.Modules {
		for _, inst := range m.Instances {
			if target := selectModule(idx, inst.Ref, inst.RefFileID); target != nil {
				orderedConns(inst.Name, inst, target.PortOrder, &diags)
				continue
			}

			device := selectDevice(idx, inst.Ref, inst.RefFileID)
			if device == nil {
				diags = append(diags, diag.New(CodeUnknownReference, diag.ERROR,
					fmt.Sprintf("Instance '%s' references unknown symbol '%s'", inst.Name, inst.Ref), nil, "verify"))
				continue
			}

			backend, ok := device.Backends.Get(backendName)
			if !ok {
				diags = append(diags, diag.New(CodeMissingBackend, diag.ERROR,
					fmt.Sprintf("Device '%s' has no backend '%s'", inst.Ref, backendName), nil, "verify"))
				continue
			}

			orderedConns(inst.Name, inst, device.Ports, &diags)

			deviceParams := render.ParamValuesToStrings(device.Params)
			backendParams := render.ParamValuesToStrings(backend.Params)
			merged, _, paramDiags := render.MergeParams(deviceParams, backendParams, inst.Params, inst.Name, inst.Ref)
			diags = append(diags, paramDiags...)

			paramKeys := map[string]bool{}
			for k := range merged {
				paramKeys[k] = true
			}
			propKeys := map[string]bool{}
			if backend.Props != nil {
				for _, e := range backend.Props.Entries() {
					propKeys[e.Key] = true
				}
			}
			_, varDiags := render.MergeVariables(nil, backend.Variables, paramKeys, propKeys, inst.Name, inst.Ref)
			diags = append(diags, varDiags...)

			placeholders, derr := render.ValidateTemplate(backend.Template, inst.Ref)
			if derr != nil {
				diags = append(diags, *derr)
				continue
			}

			allowed := map[string]bool{"name": true, "ports": true, "params": true}
			for k := range merged {
				allowed[k] = true
			}
			if backend.Variables != nil {
				for _, e := range backend.Variables.Entries() {
					allowed[e.Key] = true
				}
			}
			if backend.Props != nil {
				for _, e := range backend.Props.Entries() {
					allowed[e.Key] = true
				}
			}

			var unknown []string
			for field := range placeholders {
				if !allowed[field] {
					unknown = append(unknown, field)
				}
			}
			if len(unknown) > 0 {
				sort.Strings(unknown)
				diags = append(diags, diag.New(CodeUnknownReference, diag.ERROR,
					fmt.Sprintf("Backend template for '%s' references unknown placeholder '%s'", inst.Ref, unknown[0]),
					nil, "verify"))
			}
		}
	}

	return diags
}
