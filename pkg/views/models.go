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

// Package views implements the optional view-binding resolver (component
// C6, §4.6): given a Profile (an ordered list of view tokens to try as a
// baseline, plus an ordered list of path/instance/module override rules),
// it resolves which concrete "cell@view" module variant each hierarchical
// instance should bind to, then specializes the AtomizedGraph accordingly.
//
// Grounded on the reference implementation's asdl.views package:
// models.py's Profile/Rule validation, resolver.py's baseline-then-rules
// resolution order, instance_index.py's preorder-DFS hierarchical index,
// and api.py's module specialization/cloning with collision-safe file ids.
package views

import (
	"fmt"
)

// Rule is one override: a predicate (at least one of Path, Instance, Module;
// Instance and Module are mutually exclusive) naming what it matches, plus
// the view it binds matching instances to ("default" binds the cell's
// default definition). Only the predicate Kind reports is evaluated, so
// Path takes precedence over Instance or Module. Rules are evaluated in declaration order; a later matching rule wins.
type Rule struct {
	// Path matches a fully-qualified hierarchical instance path, e.g.
	// "top.core.bias".
	Path string
	// Instance matches any instance atom sharing this leaf name,
	// regardless of its position in the hierarchy.
	Instance string
	// Module matches any instance whose target cell name equals this
	// value, regardless of its position or instance name.
	Module string

	View string
}

// Kind reports which predicate this rule uses.
func (r Rule) Kind() string {
	switch {
	case r.Path != "":
		return "path"
	case r.Instance != "":
		return "instance"
	case r.Module != "":
		return "module"
	default:
		return ""
	}
}

// Validate enforces the mutual-exclusion and non-empty constraints on a
// rule's predicate (§4.6): instance and module are mutually exclusive, and
// at least one of path/instance/module must be set.
func (r Rule) Validate() error {
	predicates := 0
	if r.Path != "" {
		predicates++
	}
	if r.Instance != "" {
		predicates++
	}
	if r.Module != "" {
		predicates++
	}
	if predicates == 0 {
		return fmt.Errorf("view rule must set one of path, instance, or module")
	}
	if r.Instance != "" && r.Module != "" {
		return fmt.Errorf("view rule instance and module predicates are mutually exclusive")
	}
	if r.View == "" {
		return fmt.Errorf("view rule must name a target view")
	}
	return nil
}

// Profile is a complete view-binding configuration: the ordered baseline
// view tokens to try (each either "default" or a view name), and the
// ordered override rules layered on top of the baseline resolution.
type Profile struct {
	ViewOrder []string
	Rules     []Rule
}

// Validate checks every rule and requires a non-empty view order.
func (p Profile) Validate() error {
	if len(p.ViewOrder) == 0 {
		return fmt.Errorf("view profile must declare at least one view_order entry")
	}
	for i, r := range p.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("view profile rule %d: %w", i, err)
		}
	}
	return nil
}
