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

// Package ids allocates stable, deterministic opaque IDs by prefix (§3):
// "m" module, "d" device, "n" net, "i" instance, "e" endpoint, "expr"
// pattern expression.  An Allocator is scoped to a single program build
// (never process-global, per §9 / §5) and produces identical IDs across
// repeated builds of identical inputs because allocation always proceeds in
// declaration order.
package ids

import "fmt"

// Allocator hands out deterministic, monotonically increasing IDs per
// prefix.  The zero value is ready to use.
type Allocator struct {
	counters map[string]int
}

// Next returns the next ID for the given prefix, e.g. Next("m") -> "m0",
// "m1", "m2", ...
func (a *Allocator) Next(prefix string) string {
	if a.counters == nil {
		a.counters = make(map[string]int)
	}
	n := a.counters[prefix]
	a.counters[prefix] = n + 1
	return fmt.Sprintf("%s%d", prefix, n)
}

// Count returns how many IDs have been allocated for prefix so far.
func (a *Allocator) Count(prefix string) int {
	if a.counters == nil {
		return 0
	}
	return a.counters[prefix]
}

// Well-known ID prefixes from §3.
const (
	ModulePrefix     = "m"
	DevicePrefix     = "d"
	NetPrefix        = "n"
	InstancePrefix   = "i"
	EndpointPrefix   = "e"
	ExpressionPrefix = "expr"
)
