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

	"github.com/asdl-hdl/asdlc/pkg/diag"
)

// BindingPlan maps endpoint atom indices to net atom indices (§4.2.4).
type BindingPlan struct {
	NetLength      int
	EndpointLength int
	SharedAxes     []string
	BroadcastAxes  []string
	// Mapping has length EndpointLength; Mapping[i] is the net atom index
	// bound to endpoint atom i.
	Mapping []int
}

// MapIndex returns the net atom index bound to endpointIndex.
func (p BindingPlan) MapIndex(endpointIndex int) int {
	return p.Mapping[endpointIndex]
}

// Bind computes the binding plan between a net expression and an endpoint
// expression (§4.2.4): identity when lengths match, broadcast-from-scalar
// when the net has exactly one atom, otherwise named-axis broadcast via
// mixed-radix coordinate projection, or PATTERN_LENGTH_MISMATCH.
func Bind(netExpr, endpointExpr *Expr, maxAtoms int) (*BindingPlan, []diag.Diagnostic) {
	netAtoms, derrs := Expand(netExpr, maxAtoms)
	if netAtoms == nil {
		return nil, derrs
	}
	endpointAtoms, derrs := Expand(endpointExpr, maxAtoms)
	if endpointAtoms == nil {
		return nil, derrs
	}

	netLen := len(netAtoms)
	endpointLen := len(endpointAtoms)

	endpointAxisSet := make(map[string]bool, len(endpointExpr.Axes))
	for _, a := range endpointExpr.Axes {
		endpointAxisSet[a.ID] = true
	}
	netAxisSet := make(map[string]bool, len(netExpr.Axes))
	for _, a := range netExpr.Axes {
		netAxisSet[a.ID] = true
	}

	var shared, broadcast []string
	for _, id := range netExpr.AxisOrder {
		if endpointAxisSet[id] {
			shared = append(shared, id)
		}
	}
	for _, id := range endpointExpr.AxisOrder {
		if !netAxisSet[id] {
			broadcast = append(broadcast, id)
		}
	}

	if netLen == endpointLen {
		mapping := make([]int, netLen)
		for i := range mapping {
			mapping[i] = i
		}
		return &BindingPlan{NetLength: netLen, EndpointLength: endpointLen, SharedAxes: shared, BroadcastAxes: broadcast, Mapping: mapping}, nil
	}

	if netLen == 1 {
		mapping := make([]int, endpointLen)
		return &BindingPlan{NetLength: netLen, EndpointLength: endpointLen, SharedAxes: shared, BroadcastAxes: broadcast, Mapping: mapping}, nil
	}

	// Named-axis broadcast preconditions.
	if netExpr.HasUnnamedGroups() || endpointExpr.HasUnnamedGroups() {
		return nil, []diag.Diagnostic{newDiag(CodeLengthMismatch,
			"Named-axis broadcast requires named groups in both expressions.")}
	}
	if len(netExpr.Segments) > 1 || len(endpointExpr.Segments) > 1 {
		return nil, []diag.Diagnostic{newDiag(CodeLengthMismatch,
			"Named-axis broadcast is not supported for spliced expressions.")}
	}
	if len(netExpr.AxisOrder) == 0 || len(endpointExpr.AxisOrder) == 0 {
		return nil, []diag.Diagnostic{newDiag(CodeLengthMismatch,
			"Named-axis broadcast requires axis metadata for both expressions.")}
	}

	positions, missingAxis := axisSubsequencePositions(netExpr.AxisOrder, endpointExpr.AxisOrder)
	if positions == nil {
		return nil, []diag.Diagnostic{newDiag(CodeLengthMismatch,
			fmt.Sprintf("Endpoint axis order does not include axis '%s' from '%s'.", missingAxis, netExpr.Raw))}
	}

	netAxisSizes := axisSizeMap(netExpr.Axes)
	endpointAxisSizes := axisSizeMap(endpointExpr.Axes)

	netExpected := axisSizeProduct(netExpr.AxisOrder, netAxisSizes)
	endpointExpected := axisSizeProduct(endpointExpr.AxisOrder, endpointAxisSizes)
	if netExpected != netLen || endpointExpected != endpointLen {
		return nil, []diag.Diagnostic{newDiag(CodeBroadcastInvalid, fmt.Sprintf(
			"Axis broadcast requires expansion lengths to match axis-size products (net %d/%d, endpoint %d/%d).",
			netLen, netExpected, endpointLen, endpointExpected))}
	}

	for _, axisID := range netExpr.AxisOrder {
		netSize, netOK := netAxisSizes[axisID]
		endpointSize, endpointOK := endpointAxisSizes[axisID]
		if !netOK || !endpointOK {
			return nil, []diag.Diagnostic{newDiag(CodeBroadcastInvalid,
				fmt.Sprintf("Axis '%s' is missing for broadcast binding.", axisID))}
		}
		if netSize != endpointSize {
			return nil, []diag.Diagnostic{newDiag(CodeBroadcastInvalid, fmt.Sprintf(
				"Axis '%s' length mismatch between '%s' (%d) and '%s' (%d).",
				axisID, netExpr.Raw, netSize, endpointExpr.Raw, endpointSize))}
		}
	}

	endpointSizes := make([]int, len(endpointExpr.AxisOrder))
	for i, id := range endpointExpr.AxisOrder {
		endpointSizes[i] = endpointAxisSizes[id]
	}
	netSizes := make([]int, len(netExpr.AxisOrder))
	for i, id := range netExpr.AxisOrder {
		netSizes[i] = netAxisSizes[id]
	}

	mapping := make([]int, endpointLen)
	for endpointIndex := 0; endpointIndex < endpointLen; endpointIndex++ {
		coords := indexToCoords(endpointIndex, endpointSizes)
		netCoords := make([]int, len(positions))
		for i, pos := range positions {
			netCoords[i] = coords[pos]
		}
		mapping[endpointIndex] = coordsToIndex(netCoords, netSizes)
	}

	return &BindingPlan{
		NetLength:      netLen,
		EndpointLength: endpointLen,
		SharedAxes:     shared,
		BroadcastAxes:  broadcast,
		Mapping:        mapping,
	}, nil
}

// axisSubsequencePositions finds, for each net axis id in order, the next
// unused position of that id within endpointAxes, requiring the net axis
// order to be a subsequence of the endpoint axis order.
func axisSubsequencePositions(netAxes, endpointAxes []string) ([]int, string) {
	positions := make([]int, 0, len(netAxes))
	cursor := 0
	for _, axisID := range netAxes {
		idx := -1
		for i := cursor; i < len(endpointAxes); i++ {
			if endpointAxes[i] == axisID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, axisID
		}
		positions = append(positions, idx)
		cursor = idx + 1
	}
	return positions, ""
}

func axisSizeMap(axes []Axis) map[string]int {
	m := make(map[string]int, len(axes))
	for _, a := range axes {
		m[a.ID] = a.Size()
	}
	return m
}

func axisSizeProduct(order []string, sizes map[string]int) int {
	product := 1
	for _, id := range order {
		size, ok := sizes[id]
		if !ok {
			return 0
		}
		product *= size
	}
	return product
}

// indexToCoords converts a flat index into mixed-radix coordinates, most
// significant axis first (i.e. in `sizes` order).
func indexToCoords(index int, sizes []int) []int {
	coords := make([]int, len(sizes))
	for i := len(sizes) - 1; i >= 0; i-- {
		coords[i] = index % sizes[i]
		index /= sizes[i]
	}
	return coords
}

// coordsToIndex is the inverse of indexToCoords.
func coordsToIndex(coords, sizes []int) int {
	index := 0
	for i := range coords {
		index = index*sizes[i] + coords[i]
	}
	return index
}
