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
package symbol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asdl-hdl/asdlc/pkg/symbol"
)

func TestResolveUnqualifiedLocal(t *testing.T) {
	db := symbol.NewProgramDB()
	db.DefineModule("top.asdl", "inverter")

	env := symbol.NewNameEnv("top.asdl")
	def, derrs := symbol.Resolve(env, db, "inverter", nil)
	require.Empty(t, derrs)
	assert.Equal(t, symbol.ModuleKind, def.Kind)
	assert.Equal(t, "top.asdl", def.FileID)
}

func TestResolveUnqualifiedMissingIsError(t *testing.T) {
	db := symbol.NewProgramDB()
	env := symbol.NewNameEnv("top.asdl")
	_, derrs := symbol.Resolve(env, db, "missing", nil)
	require.NotEmpty(t, derrs)
	assert.Equal(t, symbol.CodeUnresolvedUnqualified, derrs[0].Code)
}

func TestResolveQualifiedCrossFile(t *testing.T) {
	db := symbol.NewProgramDB()
	db.DefineModule("lib.asdl", "adder")

	env := symbol.NewNameEnv("top.asdl")
	env.Aliases.Set("lib", "lib.asdl")

	def, derrs := symbol.Resolve(env, db, "lib.adder", nil)
	require.Empty(t, derrs)
	assert.Equal(t, "lib.asdl", def.FileID)
	assert.Equal(t, "adder", def.Name)
}

func TestResolveQualifiedUnknownAlias(t *testing.T) {
	db := symbol.NewProgramDB()
	env := symbol.NewNameEnv("top.asdl")
	_, derrs := symbol.Resolve(env, db, "lib.adder", nil)
	require.NotEmpty(t, derrs)
	assert.Equal(t, symbol.CodeUnknownImportAlias, derrs[0].Code)
}

func TestResolveQualifiedMissingModuleInTarget(t *testing.T) {
	db := symbol.NewProgramDB()
	db.DefineModule("lib.asdl", "adder")

	env := symbol.NewNameEnv("top.asdl")
	env.Aliases.Set("lib", "lib.asdl")

	_, derrs := symbol.Resolve(env, db, "lib.subtractor", nil)
	require.NotEmpty(t, derrs)
	assert.Equal(t, symbol.CodeUnresolvedQualified, derrs[0].Code)
}

func TestDeviceAndModuleNamesPreserveDeclarationOrder(t *testing.T) {
	db := symbol.NewProgramDB()
	db.DefineModule("top.asdl", "b_mod")
	db.DefineModule("top.asdl", "a_mod")
	db.DefineDevice("top.asdl", "nmos")

	assert.Equal(t, []string{"b_mod", "a_mod"}, db.ModuleNames("top.asdl"))
	assert.Equal(t, []string{"nmos"}, db.DeviceNames("top.asdl"))
}
