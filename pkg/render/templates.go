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
	"regexp"
	"sort"
	"strings"

	"github.com/asdl-hdl/asdlc/pkg/diag"
)

// requiredPlaceholders and allowedPlaceholders mirror the reference
// implementation's SYSTEM_DEVICE_REQUIRED_PLACEHOLDERS /
// SYSTEM_DEVICE_ALLOWED_PLACEHOLDERS tables.
var requiredPlaceholders = map[string]map[string]bool{
	"__subckt_header__":        set("name"),
	"__subckt_header_params__": set("name", "params"),
	"__subckt_footer__":        set(),
	"__subckt_call__":          set("name", "ports", "ref"),
	"__subckt_call_params__":   set("name", "ports", "ref", "params"),
	"__netlist_header__":       set(),
	"__netlist_footer__":       set(),
}

var allowedPlaceholders = map[string]map[string]bool{
	"__subckt_header__":        set("name", "ports", "file_id", "sym_name"),
	"__subckt_header_params__": set("name", "ports", "params", "file_id", "sym_name"),
	"__subckt_footer__":        set("name", "sym_name"),
	"__subckt_call__":          set("name", "ports", "ref", "file_id", "sym_name"),
	"__subckt_call_params__":   set("name", "ports", "ref", "params", "file_id", "sym_name"),
	"__netlist_header__":       set("backend", "top", "file_id", "top_sym_name", "emit_date", "emit_time"),
	"__netlist_footer__":       set("backend", "top", "file_id", "top_sym_name", "emit_date", "emit_time"),
}

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// CodeMalformedTemplate etc. are the diagnostic codes this package raises,
// domain-prefixed "REN" per §7.
var (
	CodeMalformedTemplate     = diag.Fmt("REN", 1) // MALFORMED_TEMPLATE
	CodeMissingPlaceholder    = diag.Fmt("REN", 2) // MISSING_PLACEHOLDER
	CodeUnknownReference      = diag.Fmt("REN", 3) // UNKNOWN_REFERENCE
	CodeMissingBackend        = diag.Fmt("REN", 4) // MISSING_BACKEND
	CodeUnresolvedEnvVar      = diag.Fmt("REN", 5) // UNRESOLVED_ENV_VAR
	CodeEmissionNameCollision = diag.Fmt("REN", 6) // EMISSION_NAME_COLLISION
	CodeUnknownInstanceParam  = diag.Fmt("REN", 7) // UNKNOWN_INSTANCE_PARAM
	CodeVariableCollision     = diag.Fmt("REN", 8) // VARIABLE_COLLISION
	CodeMissingTop            = diag.Fmt("REN", 9)  // MISSING_TOP
	CodeMissingConn           = diag.Fmt("REN", 10) // MISSING_CONN
)

var bracedEnvVarPattern = regexp.MustCompile(`\$\{[^}]+\}`)
var escapedEnvVarPattern = regexp.MustCompile(`\$(__ASDL_ENVVAR_\d+__)`)

// escapeBracedEnvVars replaces every "${...}" occurrence with a synthetic
// "$__ASDL_ENVVAR_<k>__" placeholder so brace-style env var references are
// never mistaken for Go-style template fields during formatting; the
// returned map lets restoreBracedEnvVars put the originals back afterward.
func escapeBracedEnvVars(template string) (string, map[string]string) {
	envVars := map[string]string{}
	n := 0
	escaped := bracedEnvVarPattern.ReplaceAllStringFunc(template, func(match string) string {
		placeholder := fmt.Sprintf("__ASDL_ENVVAR_%d__", n)
		n++
		envVars[placeholder] = match
		return "$" + placeholder
	})
	return escaped, envVars
}

func restoreBracedEnvVars(rendered string, envVars map[string]string) string {
	return escapedEnvVarPattern.ReplaceAllStringFunc(rendered, func(match string) string {
		sub := escapedEnvVarPattern.FindStringSubmatch(match)
		if tok, ok := envVars[sub[1]]; ok {
			return tok
		}
		return match
	})
}

// templateFieldRoots extracts the set of distinct "{field}" root names
// referenced by template (after braced-env-var escaping), mirroring
// Python's string.Formatter.parse field-name extraction: "field.attr" and
// "field[index]" both contribute root "field". "{{"/"}}" are literal-brace
// escapes. An unterminated "{" is a malformed-template error.
func templateFieldRoots(template string) (map[string]bool, error) {
	escaped, _ := escapeBracedEnvVars(template)
	fields := map[string]bool{}
	runes := []rune(escaped)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			if i+1 < len(runes) && runes[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexRune(string(runes[i+1:]), '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated '{' in template")
			}
			field := string(runes[i+1 : i+1+end])
			i += end + 1
			if field == "" {
				continue
			}
			root := field
			if j := strings.IndexAny(root, ".["); j >= 0 {
				root = root[:j]
			}
			if root != "" {
				fields[root] = true
			}
		case '}':
			if i+1 < len(runes) && runes[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("unmatched '}' in template")
		}
	}
	return fields, nil
}

// ValidateTemplate extracts and returns template's field roots, emitting a
// MALFORMED_TEMPLATE diagnostic (and returning nil) if the template cannot
// be parsed.
func ValidateTemplate(template, deviceName string) (map[string]bool, *diag.Diagnostic) {
	fields, err := templateFieldRoots(template)
	if err != nil {
		d := diag.New(CodeMalformedTemplate, diag.ERROR,
			fmt.Sprintf("Backend template for '%s' is malformed: %s", deviceName, err), nil, "render")
		return nil, &d
	}
	return fields, nil
}

// ValidateSystemDeviceTemplates checks every system template cfg declares
// against its required/allowed placeholder sets (§4.8).
func ValidateSystemDeviceTemplates(cfg *Config) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, name := range SystemTemplates {
		template, ok := cfg.Templates[name]
		if !ok {
			continue
		}
		fields, derr := ValidateTemplate(template, name)
		if derr != nil {
			out = append(out, *derr)
			continue
		}

		var missing []string
		for req := range requiredPlaceholders[name] {
			if !fields[req] {
				missing = append(missing, req)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			out = append(out, diag.New(CodeMissingPlaceholder, diag.ERROR,
				fmt.Sprintf("System device '%s' template is missing required placeholders: %s", name, strings.Join(missing, ", ")),
				nil, "render"))
		}

		var unknown []string
		for field := range fields {
			if !allowedPlaceholders[name][field] {
				unknown = append(unknown, field)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			out = append(out, diag.New(CodeUnknownReference, diag.ERROR,
				fmt.Sprintf("System device '%s' template references unknown placeholder '%s'", name, unknown[0]),
				nil, "render"))
		}
	}
	return out
}

// formatTemplate substitutes "{field}" placeholders in template from
// values, leaving "{{"/"}}" as literal braces. Returns an error naming the
// first unresolved field, mirroring Python's str.format_map KeyError.
func formatTemplate(template string, values map[string]string) (string, error) {
	var out strings.Builder
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			if i+1 < len(runes) && runes[i+1] == '{' {
				out.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexRune(string(runes[i+1:]), '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated '{' in template")
			}
			field := string(runes[i+1 : i+1+end])
			i += end + 1
			value, ok := values[field]
			if !ok {
				return "", fmt.Errorf("%s", field)
			}
			out.WriteString(value)
		case '}':
			if i+1 < len(runes) && runes[i+1] == '}' {
				out.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("unmatched '}' in template")
		default:
			out.WriteRune(runes[i])
		}
	}
	return out.String(), nil
}
