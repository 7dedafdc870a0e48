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

// Package symbol resolves module/device references across the import graph
// (component C3, §4.3). It is grounded on the reference implementation's
// elaborator.import_ package: in particular reference_validator.py's
// qualified-reference scheme ("alias.module") and alias_resolver.py's
// unqualified lookup, which here searches only the referencing file, adapted to Go's
// (value, diagnostics) return idiom in place of Python's diagnostics-list
// accumulation.
package symbol

import (
	"fmt"

	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/ordmap"
)

// Diagnostic codes for this package, domain-prefixed "SYM" per §7.
var (
	CodeUnresolvedUnqualified = diag.Fmt("SYM", 1) // UNRESOLVED_UNQUALIFIED
	CodeUnresolvedQualified   = diag.Fmt("SYM", 2) // UNRESOLVED_QUALIFIED
	CodeAmbiguousReference    = diag.Fmt("SYM", 3) // AMBIGUOUS_REFERENCE
	CodeUnknownImportAlias    = diag.Fmt("SYM", 4)
)

// Kind discriminates what a Definition points at.
type Kind uint8

const (
	ModuleKind Kind = iota
	DeviceKind
)

// Definition is one resolved module or device, tagged with the file it was
// declared in.
type Definition struct {
	Kind   Kind
	Name   string
	FileID string
}

// NameEnv is the per-file import namespace: it maps a local alias (as
// declared in that file's `imports` block) to the file id of the imported
// file.
type NameEnv struct {
	FileID  string
	Aliases *ordmap.Map[string, string]
}

// NewNameEnv constructs an empty per-file name environment.
func NewNameEnv(fileID string) *NameEnv {
	return &NameEnv{FileID: fileID, Aliases: ordmap.New[string, string]()}
}

// ProgramDB is the whole-program symbol table: every module and device
// definition, keyed by the file that declares it.
type ProgramDB struct {
	// modules[fileID][name] = definition
	modules map[string]map[string]Definition
	devices map[string]map[string]Definition
	// order of declaration per file, for deterministic diagnostics only.
	moduleOrder map[string][]string
	deviceOrder map[string][]string
}

// NewProgramDB constructs an empty program-wide symbol table.
func NewProgramDB() *ProgramDB {
	return &ProgramDB{
		modules:     make(map[string]map[string]Definition),
		devices:     make(map[string]map[string]Definition),
		moduleOrder: make(map[string][]string),
		deviceOrder: make(map[string][]string),
	}
}

// DefineModule registers a module definition declared in fileID.
func (db *ProgramDB) DefineModule(fileID, name string) {
	if db.modules[fileID] == nil {
		db.modules[fileID] = make(map[string]Definition)
	}
	if _, exists := db.modules[fileID][name]; !exists {
		db.moduleOrder[fileID] = append(db.moduleOrder[fileID], name)
	}
	db.modules[fileID][name] = Definition{Kind: ModuleKind, Name: name, FileID: fileID}
}

// DefineDevice registers a device definition declared in fileID.
func (db *ProgramDB) DefineDevice(fileID, name string) {
	if db.devices[fileID] == nil {
		db.devices[fileID] = make(map[string]Definition)
	}
	if _, exists := db.devices[fileID][name]; !exists {
		db.deviceOrder[fileID] = append(db.deviceOrder[fileID], name)
	}
	db.devices[fileID][name] = Definition{Kind: DeviceKind, Name: name, FileID: fileID}
}

// Lookup finds the (module|device) definition named symbol in fileID. It
// returns (definition, true) on an exact hit in that file only — ProgramDB
// never searches across files on its own; callers resolve cross-file
// references via NameEnv first.
func (db *ProgramDB) Lookup(fileID, name string) (Definition, bool) {
	if def, ok := db.modules[fileID][name]; ok {
		return def, true
	}
	if def, ok := db.devices[fileID][name]; ok {
		return def, true
	}
	return Definition{}, false
}

// ModuleNames returns the modules declared in fileID, in declaration order.
func (db *ProgramDB) ModuleNames(fileID string) []string {
	return db.moduleOrder[fileID]
}

// DeviceNames returns the devices declared in fileID, in declaration order.
func (db *ProgramDB) DeviceNames(fileID string) []string {
	return db.deviceOrder[fileID]
}

// Resolve resolves a reference string against env and db. References are
// either unqualified ("adder") — resolved within env.FileID only — or
// qualified ("lib.adder") — resolved via env's import alias table into the
// target file, then looked up there (§4.3).
func Resolve(env *NameEnv, db *ProgramDB, reference string, span *diag.Span) (Definition, []diag.Diagnostic) {
	alias, name, qualified := splitQualified(reference)
	if !qualified {
		def, ok := db.Lookup(env.FileID, reference)
		if !ok {
			return Definition{}, []diag.Diagnostic{diag.New(CodeUnresolvedUnqualified, diag.ERROR,
				fmt.Sprintf("Unresolved reference '%s' in '%s'.", reference, env.FileID), span, "symbol")}
		}
		return def, nil
	}

	targetFile, ok := env.Aliases.Get(alias)
	if !ok {
		return Definition{}, []diag.Diagnostic{diag.New(CodeUnknownImportAlias, diag.ERROR,
			fmt.Sprintf("Unknown import alias '%s' in qualified reference '%s'.", alias, reference), span, "symbol")}
	}
	def, ok := db.Lookup(targetFile, name)
	if !ok {
		return Definition{}, []diag.Diagnostic{diag.New(CodeUnresolvedQualified, diag.ERROR,
			fmt.Sprintf("Unresolved qualified reference '%s': '%s' not found in '%s'.", reference, name, targetFile), span, "symbol")}
	}
	return def, nil
}

func splitQualified(reference string) (alias, name string, qualified bool) {
	for i, r := range reference {
		if r == '.' {
			return reference[:i], reference[i+1:], true
		}
	}
	return "", reference, false
}
