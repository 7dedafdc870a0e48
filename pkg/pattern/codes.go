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

import "github.com/asdl-hdl/asdlc/pkg/diag"

// Diagnostic codes for this package, domain-prefixed "PAT" per §7.
var (
	CodeParseError       = diag.Fmt("PAT", 1)
	CodeTooLarge         = diag.Fmt("PAT", 2) // PAT-TOO-LARGE
	CodeDuplicateAtom    = diag.Fmt("PAT", 3) // PAT-DUPLICATE-ATOM
	CodeInvalidAtom      = diag.Fmt("PAT", 4) // PAT-INVALID-ATOM
	CodeLengthMismatch   = diag.Fmt("PAT", 5) // PATTERN_LENGTH_MISMATCH
	CodeBroadcastInvalid = diag.Fmt("PAT", 6)
)

func newDiag(code diag.Code, msg string) diag.Diagnostic {
	return diag.New(code, diag.ERROR, msg, nil, "pattern")
}
