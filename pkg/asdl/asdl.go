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

// Package asdl orchestrates the full compiler pipeline (§4, §7): C3 symbol
// definition, C4 lowering into the PatternedGraph, C5 atomization into the
// AtomizedGraph, an optional C6 view-binding pass, C7 projection into
// NetlistIR, C9 verification, and C8 backend rendering. It is the single
// entry point downstream consumers (the CLI, tests, editor tooling) should
// call rather than wiring the stage packages themselves, mirroring the
// teacher's pkg/corset.Compiler as the one seam that owns stage sequencing
// and short-circuit-on-error behavior.
package asdl

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/atomize"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/lower"
	"github.com/asdl-hdl/asdlc/pkg/netlist"
	"github.com/asdl-hdl/asdlc/pkg/project"
	"github.com/asdl-hdl/asdlc/pkg/render"
	"github.com/asdl-hdl/asdlc/pkg/symbol"
	"github.com/asdl-hdl/asdlc/pkg/verify"
	"github.com/asdl-hdl/asdlc/pkg/views"
)

// CodeCancelled is raised when ctx is cancelled between pipeline stages.
var CodeCancelled = diag.Fmt("ASD", 1)

// Options configures one Compile invocation: the optional view-binding
// profile (nil skips C6 entirely, leaving the AtomizedGraph's own
// undecorated module definitions in place) and the backend render
// configuration used by both C9 and C8.
type Options struct {
	Profile *views.Profile
	Backend *render.Config
}

// Result holds the projected netlist Design (set once projection has run,
// even when verify then reports errors) and the rendered netlist text
// (empty unless rendering ran). Intermediate stage outputs such as the
// AtomizedGraph are not retained.
type Result struct {
	Design *netlist.Design
	Text   string
}

// Compile runs docs (already-resolved pkg/ast.Document values, one per
// source file, in any order — cross-file references resolve regardless of
// processing order because every document's symbols are defined before any
// document's body is lowered) through the full pipeline and returns the
// rendered netlist text plus every diagnostic collected along the way.
//
// Per the propagation policy (§7), a stage never panics; each stage's
// diagnostics are appended to the running list, and Compile short-circuits
// to (partial Result, diagnostics-so-far) as soon as any ERROR or FATAL
// diagnostic appears, without invoking the next stage.
func Compile(ctx context.Context, docs []*ast.Document, opts Options) (Result, []diag.Diagnostic) {
	log := logrus.WithField("component", "asdl")
	var diags []diag.Diagnostic

	if cancelled(ctx, &diags) {
		return Result{}, diags
	}

	log.Info("stage=lower starting")
	builder := lower.NewBuilder()
	for _, doc := range docs {
		builder.DefineSymbols(doc)
	}
	for _, doc := range docs {
		env := symbol.NewNameEnv(doc.File)
		diags = append(diags, builder.Build(doc, env)...)
	}
	log.WithField("diagnostics", len(diags)).Info("stage=lower complete")
	if diag.HasError(diags) {
		return Result{}, diags
	}

	if cancelled(ctx, &diags) {
		return Result{}, diags
	}

	log.Info("stage=atomize starting")
	atomProg, derrs := atomize.Build(builder.Program)
	diags = append(diags, derrs...)
	log.WithField("diagnostics", len(derrs)).Info("stage=atomize complete")
	if diag.HasError(diags) {
		return Result{}, diags
	}

	if opts.Profile != nil {
		if cancelled(ctx, &diags) {
			return Result{}, diags
		}

		log.Info("stage=views starting")
		bindings, derrs := views.Resolve(atomProg, opts.Profile)
		diags = append(diags, derrs...)
		if diag.HasError(diags) {
			return Result{}, diags
		}
		atomProg, derrs = views.Apply(atomProg, bindings)
		diags = append(diags, derrs...)
		log.WithField("diagnostics", len(derrs)).Info("stage=views complete")
		if diag.HasError(diags) {
			return Result{}, diags
		}
	}

	if cancelled(ctx, &diags) {
		return Result{}, diags
	}

	log.Info("stage=project starting")
	design, derrs := project.Build(atomProg)
	diags = append(diags, derrs...)
	log.WithField("diagnostics", len(derrs)).Info("stage=project complete")
	if diag.HasError(diags) {
		return Result{}, diags
	}

	if cancelled(ctx, &diags) {
		return Result{Design: design}, diags
	}

	log.Info("stage=verify starting")
	verifyDiags := verify.Verify(design, opts.Backend.BackendName, opts.Backend)
	diags = append(diags, verifyDiags...)
	log.WithField("diagnostics", len(verifyDiags)).Info("stage=verify complete")
	if diag.HasError(diags) {
		return Result{Design: design}, diags
	}

	if cancelled(ctx, &diags) {
		return Result{Design: design}, diags
	}

	log.Info("stage=render starting")
	text, renderDiags := render.Render(design, opts.Backend)
	diags = append(diags, renderDiags...)
	log.WithField("diagnostics", len(renderDiags)).Info("stage=render complete")

	return Result{Design: design, Text: text}, diags
}

func cancelled(ctx context.Context, diags *[]diag.Diagnostic) bool {
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		*diags = append(*diags, diag.New(CodeCancelled, diag.FATAL, ctx.Err().Error(), nil, "asdl"))
		return true
	default:
		return false
	}
}
