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
package render

import (
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/netlist"
)

var moduleSymbolPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(?:@([A-Za-z_][A-Za-z0-9_]*))?$`)
var sanitizeTokenPattern = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// symbolIndex resolves instance references (name, optional file id) back to
// their target module or device definition.
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

// Render projects design into backend netlist text per cfg, returning the
// accumulated diagnostics alongside it. Rendering aborts (empty text, but a
// non-empty diagnostics list) if any ERROR/FATAL diagnostic is produced at
// any point, per the propagation policy (§7).
func Render(design *netlist.Design, cfg *Config) (string, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	idx := buildSymbolIndex(design)

	top := selectModule(idx, design.Top, design.EntryFileID)
	if top == nil {
		diags = append(diags, diag.New(CodeMissingTop, diag.ERROR,
			"Top module '"+design.Top+"' is not defined in entry file", nil, "render"))
		return "", diags
	}

	reachable := collectReachable(design, idx, top)
	emittedNames, collisionDiags := buildEmittedNames(reachable)
	diags = append(diags, collisionDiags...)

	now := time.Now()
	emitContext := map[string]string{
		"emit_date": now.Format("2006-01-02"),
		"emit_time": now.Format("15:04:05"),
	}

	var lines []string
	hadError := false

	headerCtx := map[string]string{
		"backend": cfg.BackendName, "top": emittedNames[top], "top_sym_name": top.Name,
		"file_id": entryFileIDValue(design.EntryFileID, top),
	}
	for k, v := range emitContext {
		headerCtx[k] = v
	}
	header, herr := renderSystemDevice("__netlist_header__", cfg, headerCtx, &diags)
	if header != "" {
		lines = append(lines, header)
	}
	hadError = hadError || herr

	for _, m := range reachable {
		modLines, merr := renderModule(m, m == top, idx, emittedNames, cfg, &diags)
		lines = append(lines, modLines...)
		hadError = hadError || merr
	}

	footerCtx := map[string]string{
		"backend": cfg.BackendName, "top": emittedNames[top], "top_sym_name": top.Name,
		"file_id": entryFileIDValue(design.EntryFileID, top),
	}
	for k, v := range emitContext {
		footerCtx[k] = v
	}
	footer, ferr := renderSystemDevice("__netlist_footer__", cfg, footerCtx, &diags)
	if footer != "" {
		lines = append(lines, footer)
	}
	hadError = hadError || ferr

	if hadError {
		return "", diags
	}
	return strings.Join(lines, "\n"), diags
}

func entryFileIDValue(entryFileID string, top *netlist.Module) string {
	if entryFileID != "" {
		return entryFileID
	}
	return top.FileID
}

func collectReachable(design *netlist.Design, idx *symbolIndex, top *netlist.Module) []*netlist.Module {
	order := map[*netlist.Module]int{}
	for i, m := range design.Modules {
		order[m] = i
	}
	visited := map[*netlist.Module]bool{}
	var out []*netlist.Module
	var visit func(m *netlist.Module)
	visit = func(m *netlist.Module) {
		if visited[m] {
			return
		}
		visited[m] = true
		out = append(out, m)
		for _, inst := range m.Instances {
			if child := selectModule(idx, inst.Ref, inst.RefFileID); child != nil {
				visit(child)
			}
		}
	}
	visit(top)
	sort.SliceStable(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

func realizationName(symbol string) string {
	if m := moduleSymbolPattern.FindStringSubmatch(symbol); m != nil {
		cell, view := m[1], m[2]
		if view == "" || view == "default" {
			return cell
		}
		return cell + "_" + sanitizeToken(view)
	}
	if strings.Count(symbol, "@") == 1 {
		cell, view, _ := strings.Cut(symbol, "@")
		cellTok := sanitizeToken(cell)
		if view == "" || view == "default" {
			return cellTok
		}
		return cellTok + "_" + sanitizeToken(view)
	}
	return sanitizeToken(strings.ReplaceAll(symbol, "@", "_"))
}

func sanitizeToken(v string) string {
	s := strings.Trim(sanitizeTokenPattern.ReplaceAllString(v, "_"), "_")
	if s == "" {
		return "view"
	}
	return s
}

func buildEmittedNames(modules []*netlist.Module) (map[*netlist.Module]string, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	used := map[string]bool{}
	nextSuffix := map[string]int{}
	emitted := map[*netlist.Module]string{}
	for _, m := range modules {
		base := realizationName(m.Name)
		name := base
		if used[name] {
			suffix := nextSuffix[base]
			if suffix == 0 {
				suffix = 2
			}
			for used[base+"__"+strconv.Itoa(suffix)] {
				suffix++
			}
			name = base + "__" + strconv.Itoa(suffix)
			nextSuffix[base] = suffix + 1
			fileSuffix := ""
			if m.FileID != "" {
				fileSuffix = " (file '" + m.FileID + "')"
			}
			diags = append(diags, diag.New(CodeEmissionNameCollision, diag.WARNING,
				"Module symbol '"+m.Name+"'"+fileSuffix+" emits as '"+name+"' after collision on base name '"+base+"'.",
				nil, "render"))
		} else if _, ok := nextSuffix[base]; !ok {
			nextSuffix[base] = 0
		}
		used[name] = true
		emitted[m] = name
	}
	return emitted, diags
}

func renderModule(m *netlist.Module, isTop bool, idx *symbolIndex, emittedNames map[*netlist.Module]string, cfg *Config, diags *[]diag.Diagnostic) ([]string, bool) {
	var lines []string
	hadError := false
	emitFraming := !(isTop && !cfg.TopAsSubckt)

	moduleName := emittedNames[m]
	if emitFraming {
		headerTemplate := "__subckt_header__"
		ctx := map[string]string{
			"name": moduleName, "sym_name": m.Name,
			"ports": strings.Join(m.PortOrder, " "), "file_id": m.FileID,
		}
		header, err := renderSystemDevice(headerTemplate, cfg, ctx, diags)
		if header != "" {
			lines = append(lines, header)
		}
		hadError = hadError || err
	}

	for _, inst := range m.Instances {
		line, err := renderInstance(inst, idx, emittedNames, cfg, diags)
		if line != "" {
			lines = append(lines, line)
		}
		hadError = hadError || err
	}

	if emitFraming {
		ctx := map[string]string{"name": moduleName, "sym_name": m.Name, "file_id": m.FileID}
		footer, err := renderSystemDevice("__subckt_footer__", cfg, ctx, diags)
		if footer != "" {
			lines = append(lines, footer)
		}
		hadError = hadError || err
	}

	return lines, hadError
}

func orderedConns(instanceName string, conns func(string) (string, bool), portOrder []string, diags *[]diag.Diagnostic) ([]string, bool) {
	hadError := false
	var missing []string
	for _, p := range portOrder {
		if _, ok := conns(p); !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		*diags = append(*diags, diag.New(CodeMissingConn, diag.ERROR,
			"Instance '"+instanceName+"' is missing conns for ports: "+strings.Join(missing, ", "), nil, "render"))
		hadError = true
	}
	if hadError {
		return nil, true
	}
	out := make([]string, 0, len(portOrder))
	for _, p := range portOrder {
		v, _ := conns(p)
		out = append(out, v)
	}
	return out, false
}

func renderInstance(inst *netlist.Instance, idx *symbolIndex, emittedNames map[*netlist.Module]string, cfg *Config, diags *[]diag.Diagnostic) (string, bool) {
	connLookup := func(port string) (string, bool) {
		return inst.Conns.Get(port)
	}

	if module := selectModule(idx, inst.Ref, inst.RefFileID); module != nil {
		conns, err := orderedConns(inst.Name, connLookup, module.PortOrder, diags)
		if err {
			return "", true
		}
		_, paramsStr, paramDiags := MergeParams(nil, nil, inst.Params, inst.Name, module.Name)
		*diags = append(*diags, paramDiags...)
		ctx := map[string]string{
			"name": inst.Name, "ports": strings.Join(conns, " "),
			"ref": emittedNames[module], "params": paramsStr,
			"sym_name": module.Name, "file_id": module.FileID,
		}
		template := "__subckt_call__"
		if paramsStr != "" {
			template = "__subckt_call_params__"
		}
		return renderSystemDevice(template, cfg, ctx, diags)
	}

	device := selectDevice(idx, inst.Ref, inst.RefFileID)
	if device == nil {
		*diags = append(*diags, diag.New(CodeUnknownReference, diag.ERROR,
			"Instance '"+inst.Name+"' references unknown symbol '"+inst.Ref+"'", nil, "render"))
		return "", true
	}

	backend, ok := device.Backends.Get(cfg.BackendName)
	if !ok {
		*diags = append(*diags, diag.New(CodeMissingBackend, diag.ERROR,
			"Device '"+inst.Ref+"' has no backend '"+cfg.BackendName+"'", nil, "render"))
		return "", true
	}

	conns, cerr := orderedConns(inst.Name, connLookup, device.Ports, diags)
	if cerr {
		return "", true
	}
	portsStr := strings.Join(conns, " ")

	deviceParams := ParamValuesToStrings(device.Params)
	backendParams := ParamValuesToStrings(backend.Params)
	merged, paramsStr, paramDiags := MergeParams(deviceParams, backendParams, inst.Params, inst.Name, inst.Ref)
	*diags = append(*diags, paramDiags...)

	paramKeys := map[string]bool{}
	for k := range merged {
		paramKeys[k] = true
	}
	props := backend.Props
	propKeys := map[string]bool{}
	if props != nil {
		for _, e := range props.Entries() {
			propKeys[e.Key] = true
		}
	}
	mergedVars, varDiags := MergeVariables(nil, backend.Variables, paramKeys, propKeys, inst.Name, inst.Ref)
	*diags = append(*diags, varDiags...)
	for _, d := range varDiags {
		if d.Severity == diag.ERROR || d.Severity == diag.FATAL {
			return "", true
		}
	}

	template := backend.Template
	escaped, envVars := escapeBracedEnvVars(template)
	placeholders, derr := ValidateTemplate(template, inst.Ref)
	if derr != nil {
		*diags = append(*diags, *derr)
		return "", true
	}

	values := map[string]string{"name": inst.Name, "ports": portsStr, "params": paramsStr}
	if props != nil {
		for _, e := range props.Entries() {
			if _, exists := values[e.Key]; !exists {
				values[e.Key] = e.Value
			}
		}
	}
	for k, v := range merged {
		values[k] = v
	}
	for k, v := range mergedVars {
		values[k] = v
	}

	rendered, ferr := formatTemplate(escaped, values)
	if ferr != nil {
		*diags = append(*diags, diag.New(CodeUnknownReference, diag.ERROR,
			"Backend template for '"+inst.Ref+"' references unknown placeholder '"+ferr.Error()+"'", nil, "render"))
		return "", true
	}
	rendered = restoreBracedEnvVars(rendered, envVars)

	shouldCollapse := (placeholders["ports"] && portsStr == "") || (placeholders["params"] && paramsStr == "")
	if shouldCollapse {
		rendered = collapseWhitespace(rendered)
	}

	expanded, unresolved := expandEnvVars(rendered)
	if unresolved != nil {
		*diags = append(*diags, diag.New(CodeUnresolvedEnvVar, diag.ERROR,
			"Backend template for '"+inst.Ref+"' contains unresolved environment variables: "+strings.Join(unresolved, ", "), nil, "render"))
		return "", true
	}
	return expanded, false
}

func renderSystemDevice(name string, cfg *Config, ctx map[string]string, diags *[]diag.Diagnostic) (string, bool) {
	template, ok := cfg.Templates[name]
	if !ok {
		*diags = append(*diags, diag.New(CodeMissingBackend, diag.ERROR,
			"System device '"+name+"' not defined in backend config", nil, "render"))
		return "", true
	}

	escaped, envVars := escapeBracedEnvVars(template)
	placeholders, derr := ValidateTemplate(template, name)
	if derr != nil {
		*diags = append(*diags, *derr)
		return "", true
	}

	rendered, err := formatTemplate(escaped, ctx)
	if err != nil {
		*diags = append(*diags, diag.New(CodeUnknownReference, diag.ERROR,
			"System device '"+name+"' template references unknown placeholder '"+err.Error()+"'", nil, "render"))
		return "", true
	}
	rendered = restoreBracedEnvVars(rendered, envVars)

	shouldCollapse := (placeholders["ports"] && ctx["ports"] == "") || (placeholders["params"] && ctx["params"] == "")
	if shouldCollapse {
		rendered = collapseWhitespace(rendered)
	}

	expanded, unresolved := expandEnvVars(rendered)
	if unresolved != nil {
		*diags = append(*diags, diag.New(CodeUnresolvedEnvVar, diag.ERROR,
			"System device '"+name+"' template contains unresolved environment variables: "+strings.Join(unresolved, ", "), nil, "render"))
		return "", true
	}
	return expanded, false
}

func collapseWhitespace(rendered string) string {
	lines := strings.Split(rendered, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.Join(lines, "\n")
}

func expandEnvVars(rendered string) (string, []string) {
	seen := map[string]bool{}
	var unresolved []string
	expanded := os.Expand(rendered, func(name string) string {
		v, ok := os.LookupEnv(name)
		if !ok {
			if !seen[name] {
				seen[name] = true
				unresolved = append(unresolved, name)
			}
			return ""
		}
		return v
	})
	if len(unresolved) > 0 {
		sort.Strings(unresolved)
		return "", unresolved
	}
	return expanded, nil
}
