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
	"fmt"
	"strconv"

	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
)

// ParamValuesToStrings stringifies a typed device/backend param table,
// mirroring the reference implementation's _stringify_attr.
func ParamValuesToStrings(values *ordmap.Map[string, ast.ParamValue]) *ordmap.Map[string, string] {
	out := ordmap.New[string, string]()
	if values == nil {
		return out
	}
	for _, e := range values.Entries() {
		out.Set(e.Key, stringifyParamValue(e.Value))
	}
	return out
}

func stringifyParamValue(v ast.ParamValue) string {
	switch v.Kind {
	case "int":
		return strconv.FormatInt(v.Int, 10)
	case "float":
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case "bool":
		return strconv.FormatBool(v.Bool)
	default:
		return v.String
	}
}

// MergeParams merges device defaults, backend overrides, and instance
// overrides (in that priority order) into a single param table, preserving
// key order {device keys first, then backend-only keys}. An instance
// override naming a key absent from both device and backend params is
// dropped with an UNKNOWN_INSTANCE_PARAM warning rather than merged (§4.8).
func MergeParams(deviceParams, backendParams, instParams *ordmap.Map[string, string], instanceName, deviceName string) (map[string]string, string, []diag.Diagnostic) {
	var out []diag.Diagnostic
	var order []string
	allowed := map[string]bool{}
	if deviceParams != nil {
		for _, e := range deviceParams.Entries() {
			order = append(order, e.Key)
			allowed[e.Key] = true
		}
	}
	if backendParams != nil {
		for _, e := range backendParams.Entries() {
			if !allowed[e.Key] {
				order = append(order, e.Key)
				allowed[e.Key] = true
			}
		}
	}

	merged := map[string]string{}
	if deviceParams != nil {
		for _, e := range deviceParams.Entries() {
			merged[e.Key] = e.Value
		}
	}
	if backendParams != nil {
		for _, e := range backendParams.Entries() {
			merged[e.Key] = e.Value
		}
	}
	if instParams != nil {
		for _, e := range instParams.Entries() {
			if !allowed[e.Key] {
				out = append(out, diag.New(CodeUnknownInstanceParam, diag.WARNING,
					fmt.Sprintf("Instance '%s' overrides unknown param '%s' on device '%s'", instanceName, e.Key, deviceName),
					nil, "render"))
				continue
			}
			merged[e.Key] = e.Value
		}
	}

	var tokens string
	for i, key := range order {
		if i > 0 {
			tokens += " "
		}
		tokens += key + "=" + merged[key]
	}
	return merged, tokens, out
}

// MergeVariables merges device and backend variable tables (backend
// overriding device), rejecting any variable key that collides with a
// params or props key already claimed at either layer (§4.8, §4.9).
func MergeVariables(deviceVars, backendVars *ordmap.Map[string, string], paramKeys, propKeys map[string]bool, instanceName, deviceName string) (map[string]string, []diag.Diagnostic) {
	var out []diag.Diagnostic
	merged := map[string]string{}

	apply := func(vars *ordmap.Map[string, string]) {
		if vars == nil {
			return
		}
		for _, e := range vars.Entries() {
			if paramKeys[e.Key] || propKeys[e.Key] {
				out = append(out, diag.New(CodeVariableCollision, diag.ERROR,
					fmt.Sprintf("Device '%s' variable '%s' collides with a param/prop key for instance '%s'", deviceName, e.Key, instanceName),
					nil, "render"))
				continue
			}
			merged[e.Key] = e.Value
		}
	}
	apply(deviceVars)
	apply(backendVars)
	return merged, out
}
