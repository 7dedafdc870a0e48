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

// Package pattern implements the ASDL pattern algebra (component C2, §4.2):
// parsing pattern expressions into segments/tokens/axes, expanding them into
// literal atoms, atomizing endpoint expressions into (inst, pin) pairs, and
// computing net-to-endpoint binding plans (including named-axis broadcast).
//
// This package is grounded directly on the reference implementation's
// patterns_refactor module (parser.py / expand.py / bind.py): the grammar,
// expansion algorithm and mixed-radix broadcast math below reproduce that
// module's semantics, rewritten in Go's (value, diagnostics) idiom rather
// than Python tuple returns.
package pattern

import "github.com/asdl-hdl/asdlc/pkg/diag"

// DefaultMaxAtoms is the default expansion cap (§4.2.2, §9 Open Questions).
const DefaultMaxAtoms = 10_000

// TokenKind discriminates the three token shapes a pattern segment may
// contain.
type TokenKind uint8

const (
	// Literal is a run of ordinary characters copied verbatim into every atom.
	Literal TokenKind = iota
	// Group is an enumerated alternatives list "<a|b|c>".
	Group
	// Range is an inclusive numeric range "<start:end>".
	Range
)

// Token is one element of a pattern segment.
type Token struct {
	Kind TokenKind
	// Text holds the literal text for Literal tokens.
	Text string
	// Labels holds the expansion labels for Group/Range tokens, already
	// rendered to strings in expansion order (so Range direction, e.g.
	// descending, is already baked in).
	Labels []string
	// AxisID is non-empty when this token originated from a named pattern
	// reference <@name>; it is the axis identifier (explicit tag, or the
	// pattern name) used for named-axis broadcast binding.
	AxisID string
}

// Axis describes one named dimension of expansion, in left-to-right order
// of first appearance within an expression.
type Axis struct {
	ID     string
	Labels []string
	// Order is this axis's left-to-right position among the axes of its
	// enclosing expression.
	Order int
}

// Size returns the number of labels (and hence the contribution to the
// mixed-radix coordinate system) for this axis.
func (a Axis) Size() int { return len(a.Labels) }

// Segment is a splice-delimited (";"-separated) portion of an expression.
type Segment struct {
	Tokens []Token
}

// Expr is a fully parsed pattern expression.
type Expr struct {
	Raw        string
	Segments   []Segment
	Axes       []Axis
	AxisOrder  []string
	Span       *diag.Span
}

// HasUnnamedGroups reports whether expr contains any Group/Range token
// lacking an axis ID — such expressions cannot participate in named-axis
// broadcast binding (§4.2.4).
func (e Expr) HasUnnamedGroups() bool {
	for _, seg := range e.Segments {
		for _, tok := range seg.Tokens {
			if tok.Kind != Literal && tok.AxisID == "" {
				return true
			}
		}
	}
	return false
}

// NamedPattern is a reusable single-group definition referenced via
// "<@name>" and registered in a module's `patterns` block.
type NamedPattern struct {
	// Expr is the group token text, e.g. "<0|1>".
	Expr string
	// Tag is the optional explicit axis tag; when empty the pattern's own
	// name is used as the axis id.
	Tag string
}
