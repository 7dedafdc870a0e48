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

// Package docfile loads a single ASDL source document from its on-disk YAML
// representation into a pkg/ast.Document, the same viper-based
// configuration-loading idiom pkg/render and pkg/views use for backend
// configs and view profiles. Every order-sensitive ast.Document field
// (imports, modules, devices, patterns, instances, nets, params, variables)
// is expressed on disk as a YAML *list* of named entries rather than a
// mapping key, since Go's YAML/JSON decoders do not preserve mapping key
// order the way pkg/ordmap requires (§6); this package is the seam that
// restores that order into ordmap.Map values as it decodes.
package docfile

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
)

type rawDocument struct {
	File    string         `mapstructure:"file"`
	Top     string         `mapstructure:"top"`
	Imports []rawImport    `mapstructure:"imports"`
	Modules []rawModule    `mapstructure:"modules"`
	Devices []rawDevice    `mapstructure:"devices"`
}

type rawImport struct {
	Name   string `mapstructure:"name"`
	Target string `mapstructure:"target"`
}

type rawModule struct {
	Name             string                `mapstructure:"name"`
	Patterns         []rawPattern          `mapstructure:"patterns"`
	Instances        []rawInstance         `mapstructure:"instances"`
	Nets             []rawNet              `mapstructure:"nets"`
	InstanceDefaults []rawInstanceDefault  `mapstructure:"instance_defaults"`
	Variables        []rawKeyValue         `mapstructure:"variables"`
}

type rawPattern struct {
	Name string `mapstructure:"name"`
	Expr string `mapstructure:"expr"`
	Tag  string `mapstructure:"tag"`
}

type rawInstance struct {
	Name string `mapstructure:"name"`
	Expr string `mapstructure:"expr"`
}

type rawNet struct {
	Name         string   `mapstructure:"name"`
	ImplicitPort bool     `mapstructure:"implicit_port"`
	Endpoints    []string `mapstructure:"endpoints"`
}

type rawInstanceDefault struct {
	Instance string        `mapstructure:"instance"`
	Bindings []rawKeyValue `mapstructure:"bindings"`
}

type rawKeyValue struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

type rawDevice struct {
	Name     string          `mapstructure:"name"`
	Ports    []string        `mapstructure:"ports"`
	Params   []rawParam      `mapstructure:"params"`
	Backends []rawBackend    `mapstructure:"backends"`
}

type rawParam struct {
	Name  string `mapstructure:"name"`
	Kind  string `mapstructure:"kind"`
	Int   int64  `mapstructure:"int"`
	Float float64 `mapstructure:"float"`
	Bool  bool   `mapstructure:"bool"`
	Value string `mapstructure:"value"`
}

type rawBackend struct {
	Name      string        `mapstructure:"name"`
	Template  string        `mapstructure:"template"`
	Params    []rawParam    `mapstructure:"params"`
	Variables []rawKeyValue `mapstructure:"variables"`
	Props     []rawKeyValue `mapstructure:"props"`
}

// Load reads a source document YAML file at path and converts it into a
// pkg/ast.Document ready for pkg/asdl.Compile.
func Load(path string) (*ast.Document, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}

	var raw rawDocument
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal document %s: %w", path, err)
	}

	return convert(&raw), nil
}

func convert(raw *rawDocument) *ast.Document {
	doc := &ast.Document{
		File:    raw.File,
		Top:     raw.Top,
		Imports: ordmap.New[string, ast.ImportDecl](),
		Modules: ordmap.New[string, *ast.ModuleDecl](),
		Devices: ordmap.New[string, *ast.DeviceDecl](),
	}

	for _, imp := range raw.Imports {
		doc.Imports.Set(imp.Name, ast.ImportDecl{Target: imp.Target})
	}
	for _, m := range raw.Modules {
		doc.Modules.Set(m.Name, convertModule(m))
	}
	for _, d := range raw.Devices {
		doc.Devices.Set(d.Name, convertDevice(d))
	}
	return doc
}

func convertModule(m rawModule) *ast.ModuleDecl {
	mod := &ast.ModuleDecl{
		Name:             m.Name,
		Patterns:         ordmap.New[string, ast.PatternDecl](),
		Instances:        ordmap.New[string, ast.InstanceExpr](),
		Nets:             ordmap.New[string, ast.NetDecl](),
		InstanceDefaults: ordmap.New[string, *ordmap.Map[string, string]](),
		Variables:        ordmap.New[string, string](),
	}
	for _, p := range m.Patterns {
		mod.Patterns.Set(p.Name, ast.PatternDecl{Expr: p.Expr, Tag: p.Tag})
	}
	for _, i := range m.Instances {
		mod.Instances.Set(i.Name, ast.InstanceExpr{Raw: i.Expr})
	}
	for _, n := range m.Nets {
		endpoints := make([]ast.EndpointRef, 0, len(n.Endpoints))
		for _, e := range n.Endpoints {
			endpoints = append(endpoints, parseEndpoint(e))
		}
		mod.Nets.Set(n.Name, ast.NetDecl{ImplicitPort: n.ImplicitPort, Endpoints: endpoints})
	}
	for _, d := range m.InstanceDefaults {
		bindings := ordmap.New[string, string]()
		for _, kv := range d.Bindings {
			bindings.Set(kv.Key, kv.Value)
		}
		mod.InstanceDefaults.Set(d.Instance, bindings)
	}
	for _, kv := range m.Variables {
		mod.Variables.Set(kv.Key, kv.Value)
	}
	return mod
}

// parseEndpoint strips a leading "!" off an endpoint token and records its
// presence in EndpointRef.Suppressed.
func parseEndpoint(raw string) ast.EndpointRef {
	if len(raw) > 0 && raw[0] == '!' {
		return ast.EndpointRef{Expr: raw[1:], Suppressed: true}
	}
	return ast.EndpointRef{Expr: raw}
}

func convertDevice(d rawDevice) *ast.DeviceDecl {
	dev := &ast.DeviceDecl{
		Name:     d.Name,
		Ports:    d.Ports,
		Params:   ordmap.New[string, ast.ParamValue](),
		Backends: ordmap.New[string, ast.DeviceBackendDecl](),
	}
	for _, p := range d.Params {
		dev.Params.Set(p.Name, convertParam(p))
	}
	for _, b := range d.Backends {
		backend := ast.DeviceBackendDecl{
			Template:  b.Template,
			Params:    ordmap.New[string, ast.ParamValue](),
			Variables: ordmap.New[string, string](),
			Props:     ordmap.New[string, string](),
		}
		for _, p := range b.Params {
			backend.Params.Set(p.Name, convertParam(p))
		}
		for _, kv := range b.Variables {
			backend.Variables.Set(kv.Key, kv.Value)
		}
		for _, kv := range b.Props {
			backend.Props.Set(kv.Key, kv.Value)
		}
		dev.Backends.Set(b.Name, backend)
	}
	return dev
}

func convertParam(p rawParam) ast.ParamValue {
	switch p.Kind {
	case "int":
		return ast.ParamValue{Kind: "int", Int: p.Int}
	case "float":
		return ast.ParamValue{Kind: "float", Float: p.Float}
	case "bool":
		return ast.ParamValue{Kind: "bool", Bool: p.Bool}
	default:
		return ast.ParamValue{Kind: "string", String: p.Value}
	}
}
