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
package views_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asdl-hdl/asdlc/pkg/atomized"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
	"github.com/asdl-hdl/asdlc/pkg/views"
)

// buildTwoLevelProgram builds a top module instantiating "leaf" twice (u1,
// u2), plus a "leaf@fast" module variant, so the resolver has something
// concrete to choose between.
func buildTwoLevelProgram(t *testing.T) *atomized.Program {
	t.Helper()

	leaf := &atomized.Module{
		ID: "leaf", Name: "leaf", FileID: "f",
		Nets:      ordmap.New[string, *atomized.NetAtom](),
		Instances: ordmap.New[string, *atomized.InstanceAtom](),
	}
	leafFast := &atomized.Module{
		ID: "leaf@fast", Name: "leaf@fast", FileID: "f",
		Nets:      ordmap.New[string, *atomized.NetAtom](),
		Instances: ordmap.New[string, *atomized.InstanceAtom](),
	}

	top := &atomized.Module{
		ID: "top", Name: "top", FileID: "f",
		Nets:      ordmap.New[string, *atomized.NetAtom](),
		Instances: ordmap.New[string, *atomized.InstanceAtom](),
	}
	top.Instances.Set("u1", &atomized.InstanceAtom{Name: "u1", TargetFileID: "f", TargetName: "leaf"})
	top.Instances.Set("u2", &atomized.InstanceAtom{Name: "u2", TargetFileID: "f", TargetName: "leaf"})

	prog := atomized.NewProgram()
	prog.Modules.Set(top.ID, top)
	prog.Modules.Set(leaf.ID, leaf)
	prog.Modules.Set(leafFast.ID, leafFast)
	prog.TopModule = "top"
	return prog
}

func TestBuildIndexWalksPreorderWithDottedPaths(t *testing.T) {
	prog := buildTwoLevelProgram(t)
	entries := views.BuildIndex(prog)
	require.Len(t, entries, 2)
	assert.Equal(t, "u1", entries[0].Path)
	assert.Equal(t, "u2", entries[1].Path)
	assert.Equal(t, "leaf", entries[0].Cell)
}

func TestResolveAppliesBaselineViewOrder(t *testing.T) {
	prog := buildTwoLevelProgram(t)
	profile := &views.Profile{ViewOrder: []string{"fast", "default"}}
	bindings, derrs := views.Resolve(prog, profile)
	require.Empty(t, derrs)
	require.Len(t, bindings, 2)
	assert.Equal(t, "fast", bindings[0].View)
	assert.Equal(t, "fast", bindings[1].View)
}

func TestResolveInstanceRuleOverridesBaseline(t *testing.T) {
	prog := buildTwoLevelProgram(t)
	profile := &views.Profile{
		ViewOrder: []string{"fast", "default"},
		Rules:     []views.Rule{{Instance: "u2", View: "default"}},
	}
	bindings, derrs := views.Resolve(prog, profile)
	require.Empty(t, derrs)
	byPath := map[string]string{}
	for _, b := range bindings {
		byPath[b.Entry.Path] = b.View
	}
	assert.Equal(t, "fast", byPath["u1"])
	assert.Equal(t, "", byPath["u2"])
}

func TestRuleValidateRejectsMutuallyExclusivePredicates(t *testing.T) {
	r := views.Rule{Instance: "x", Module: "y", View: "fast"}
	assert.Error(t, r.Validate())
}

func TestApplySpecializesOnlyTheOverriddenOccurrence(t *testing.T) {
	prog := buildTwoLevelProgram(t)
	profile := &views.Profile{
		ViewOrder: []string{"default"},
		Rules:     []views.Rule{{Instance: "u1", View: "fast"}},
	}
	bindings, derrs := views.Resolve(prog, profile)
	require.Empty(t, derrs)

	specialized, derrs := views.Apply(prog, bindings)
	require.Empty(t, derrs)

	top, ok := specialized.Modules.Get("top")
	require.True(t, ok)
	u1, _ := top.Instances.Get("u1")
	u2, _ := top.Instances.Get("u2")
	assert.Equal(t, "leaf@fast", u1.TargetName)
	assert.Equal(t, "leaf", u2.TargetName)
}
