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
package pattern

import (
	"fmt"
	"strings"

	"github.com/asdl-hdl/asdlc/pkg/diag"
)

// Atom is one expanded literal produced from an expression, tagged with the
// provenance needed to populate a PatternOrigin downstream (§3, §4.5).
type Atom struct {
	Literal      string
	SegmentIndex int
	// BaseName is the concatenation of this segment's literal tokens only
	// (i.e. the segment with all group/range substitutions stripped).
	BaseName string
	// Parts holds the ordered substitution values (one per group/range
	// token encountered, in left-to-right order) used to produce Literal.
	Parts []string
}

// Expand expands expr into a flat, ordered sequence of atoms (§4.2.2).
// Segments concatenate; within a segment, tokens cross-product.
func Expand(expr *Expr, maxAtoms int) ([]Atom, []diag.Diagnostic) {
	if maxAtoms <= 0 {
		maxAtoms = DefaultMaxAtoms
	}
	var atoms []Atom
	for segIdx, seg := range expr.Segments {
		segAtoms, baseName, derr := expandSegment(seg, expr.Raw, maxAtoms)
		if derr != nil {
			return nil, []diag.Diagnostic{*derr}
		}
		if len(atoms)+len(segAtoms) > maxAtoms {
			return nil, []diag.Diagnostic{tooLarge(expr.Raw, maxAtoms)}
		}
		for _, sa := range segAtoms {
			atoms = append(atoms, Atom{
				Literal:      sa.value,
				SegmentIndex: segIdx,
				BaseName:     baseName,
				Parts:        sa.parts,
			})
		}
	}

	if dup := findDuplicateLiteral(atoms); dup != "" {
		return nil, []diag.Diagnostic{newDiag(CodeDuplicateAtom,
			fmt.Sprintf("Pattern expression '%s' produces duplicate atom '%s'.", expr.Raw, dup))}
	}

	return atoms, nil
}

type segAtom struct {
	value string
	parts []string
}

func expandSegment(seg Segment, raw string, maxAtoms int) ([]segAtom, string, *diag.Diagnostic) {
	var baseName strings.Builder
	current := []segAtom{{value: "", parts: nil}}

	for _, tok := range seg.Tokens {
		switch tok.Kind {
		case Literal:
			baseName.WriteString(tok.Text)
			for i := range current {
				current[i].value += tok.Text
			}
		case Group, Range:
			nextSize := len(current) * len(tok.Labels)
			if nextSize > maxAtoms {
				d := tooLarge(raw, maxAtoms)
				return nil, "", &d
			}
			expanded := make([]segAtom, 0, nextSize)
			for _, prefix := range current {
				for _, label := range tok.Labels {
					parts := append(append([]string{}, prefix.parts...), label)
					expanded = append(expanded, segAtom{value: prefix.value + label, parts: parts})
				}
			}
			current = expanded
		}
	}

	return current, baseName.String(), nil
}

func tooLarge(raw string, maxAtoms int) diag.Diagnostic {
	return newDiag(CodeTooLarge, fmt.Sprintf("Pattern expression '%s' exceeds %d atoms.", raw, maxAtoms))
}

func findDuplicateLiteral(atoms []Atom) string {
	seen := make(map[string]bool, len(atoms))
	for _, a := range atoms {
		if seen[a.Literal] {
			return a.Literal
		}
		seen[a.Literal] = true
	}
	return ""
}

// Endpoint is an atomized endpoint (inst, pin) pair with provenance (§4.2.3).
type Endpoint struct {
	Inst string
	Pin  string
	Atom Atom
}

// ExpandEndpoint expands an endpoint expression and splits each resulting
// atom on "." into (inst, pin). Every atom MUST contain exactly one ".".
func ExpandEndpoint(expr *Expr, maxAtoms int) ([]Endpoint, []diag.Diagnostic) {
	atoms, derrs := Expand(expr, maxAtoms)
	if atoms == nil {
		return nil, derrs
	}

	endpoints := make([]Endpoint, 0, len(atoms))
	for _, a := range atoms {
		if strings.Count(a.Literal, ".") != 1 {
			return nil, []diag.Diagnostic{newDiag(CodeInvalidAtom,
				fmt.Sprintf("Endpoint expression '%s' expands to invalid atom '%s'.", expr.Raw, a.Literal))}
		}
		parts := strings.SplitN(a.Literal, ".", 2)
		endpoints = append(endpoints, Endpoint{Inst: parts[0], Pin: parts[1], Atom: a})
	}
	return endpoints, nil
}
