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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func atomLiterals(atoms []Atom) []string {
	out := make([]string, len(atoms))
	for i, a := range atoms {
		out[i] = a.Literal
	}
	return out
}

// S1: enum expansion.
func TestEnumExpansion(t *testing.T) {
	expr, derrs := Parse("in<p|n>", nil, nil)
	require.Empty(t, derrs)
	atoms, derrs := Expand(expr, DefaultMaxAtoms)
	require.Empty(t, derrs)
	assert.Equal(t, []string{"inp", "inn"}, atomLiterals(atoms))
	assert.Equal(t, []string{"p"}, atoms[0].Parts)
}

// S2: numeric ranges, ascending and descending.
func TestNumericRange(t *testing.T) {
	expr, derrs := Parse("x<1:3>", nil, nil)
	require.Empty(t, derrs)
	atoms, derrs := Expand(expr, DefaultMaxAtoms)
	require.Empty(t, derrs)
	assert.Equal(t, []string{"x1", "x2", "x3"}, atomLiterals(atoms))

	descExpr, derrs := Parse("x<3:1>", nil, nil)
	require.Empty(t, derrs)
	descAtoms, derrs := Expand(descExpr, DefaultMaxAtoms)
	require.Empty(t, derrs)
	assert.Equal(t, []string{"x3", "x2", "x1"}, atomLiterals(descAtoms))
}

// S3: splice across segments, and the empty-segment error.
func TestSplice(t *testing.T) {
	expr, derrs := Parse("a<0|1>;b<0|1>", nil, nil)
	require.Empty(t, derrs)
	atoms, derrs := Expand(expr, DefaultMaxAtoms)
	require.Empty(t, derrs)
	assert.Equal(t, []string{"a0", "a1", "b0", "b1"}, atomLiterals(atoms))

	_, derrs = Parse("a;", nil, nil)
	require.NotEmpty(t, derrs)
}

// S4: named-axis broadcast.
func TestNamedAxisBroadcast(t *testing.T) {
	named := map[string]NamedPattern{
		"row": {Expr: "<0|1>", Tag: "Row"},
		"col": {Expr: "<0|1>", Tag: "Col"},
	}
	netExpr, derrs := Parse("n<@row>", named, nil)
	require.Empty(t, derrs)
	endpointExpr, derrs := Parse("m<@row><@col>.p", named, nil)
	require.Empty(t, derrs)

	netAtoms, derrs := Expand(netExpr, DefaultMaxAtoms)
	require.Empty(t, derrs)
	assert.Equal(t, []string{"n0", "n1"}, atomLiterals(netAtoms))

	endpointAtoms, derrs := ExpandEndpoint(endpointExpr, DefaultMaxAtoms)
	require.Empty(t, derrs)
	require.Len(t, endpointAtoms, 4)
	assert.Equal(t, []string{"m00.p", "m01.p", "m10.p", "m11.p"},
		[]string{endpointAtoms[0].Inst + "." + endpointAtoms[0].Pin,
			endpointAtoms[1].Inst + "." + endpointAtoms[1].Pin,
			endpointAtoms[2].Inst + "." + endpointAtoms[2].Pin,
			endpointAtoms[3].Inst + "." + endpointAtoms[3].Pin})

	plan, derrs := Bind(netExpr, endpointExpr, DefaultMaxAtoms)
	require.Empty(t, derrs)
	assert.Equal(t, []int{0, 0, 1, 1}, plan.Mapping)
}

// P2: binding coherence for identity and scalar-broadcast cases.
func TestBindingCoherenceIdentityAndScalar(t *testing.T) {
	net, _ := Parse("in<p|n>", nil, nil)
	endpoint, _ := Parse("m1.d;m2.d", nil, nil)
	plan, derrs := Bind(net, endpoint, DefaultMaxAtoms)
	require.Empty(t, derrs)
	assert.Equal(t, []int{0, 1}, plan.Mapping)

	scalarNet, _ := Parse("vdd", nil, nil)
	plan2, derrs := Bind(scalarNet, endpoint, DefaultMaxAtoms)
	require.Empty(t, derrs)
	assert.Equal(t, []int{0, 0}, plan2.Mapping)
}

func TestLengthMismatchWithoutBroadcastIsError(t *testing.T) {
	net, _ := Parse("n<0|1|2>", nil, nil)
	endpoint, _ := Parse("m1.d;m2.d", nil, nil)
	_, derrs := Bind(net, endpoint, DefaultMaxAtoms)
	require.NotEmpty(t, derrs)
}

func TestEndpointAtomizationRequiresSingleDot(t *testing.T) {
	expr, _ := Parse("m1d", nil, nil)
	_, derrs := ExpandEndpoint(expr, DefaultMaxAtoms)
	require.NotEmpty(t, derrs)
	assert.Equal(t, CodeInvalidAtom, derrs[0].Code)
}

func TestExpansionCapExceeded(t *testing.T) {
	expr, _ := Parse("x<1:20000>", nil, nil)
	_, derrs := Expand(expr, DefaultMaxAtoms)
	require.NotEmpty(t, derrs)
	assert.Equal(t, CodeTooLarge, derrs[0].Code)
}

func TestExpansionCapAtBoundaryIsOK(t *testing.T) {
	expr, _ := Parse("x<1:10000>", nil, nil)
	atoms, derrs := Expand(expr, DefaultMaxAtoms)
	require.Empty(t, derrs)
	assert.Len(t, atoms, 10000)
}

func TestDuplicateAtomIsError(t *testing.T) {
	expr, _ := Parse("a<0|0>", nil, nil)
	_, derrs := Expand(expr, DefaultMaxAtoms)
	require.NotEmpty(t, derrs)
	assert.Equal(t, CodeDuplicateAtom, derrs[0].Code)
}

func TestWhitespaceIsRejected(t *testing.T) {
	_, derrs := Parse("a<0 |1>", nil, nil)
	require.NotEmpty(t, derrs)
}

func TestReservedCharOutsideGroupIsRejected(t *testing.T) {
	_, derrs := Parse("a]b", nil, nil)
	require.NotEmpty(t, derrs)
}

func TestDuplicateAxisIDIsRejected(t *testing.T) {
	named := map[string]NamedPattern{
		"row": {Expr: "<0|1>"},
	}
	_, derrs := Parse("<@row><@row>", named, nil)
	require.NotEmpty(t, derrs)
}
