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
	"strconv"
	"strings"
	"unicode"

	"github.com/asdl-hdl/asdlc/pkg/diag"
)

// Parse parses a raw pattern expression string into an Expr (§4.2.1).
//
// namedPatterns resolves "<@name>" references against the enclosing
// module's `patterns` block; it may be nil if the expression uses none.
func Parse(expression string, namedPatterns map[string]NamedPattern, span *diag.Span) (*Expr, []diag.Diagnostic) {
	if expression == "" {
		return nil, []diag.Diagnostic{newDiagSpan(CodeParseError, "Pattern expression is empty.", span)}
	}

	var (
		segments   []Segment
		tokens     []Token
		literalBuf strings.Builder
		axisOrder  []string
		axisSeen   = map[string]bool{}
		axes       []Axis
	)

	flushLiteral := func() {
		if literalBuf.Len() > 0 {
			tokens = append(tokens, Token{Kind: Literal, Text: literalBuf.String()})
			literalBuf.Reset()
		}
	}

	runes := []rune(expression)
	i := 0
	for i < len(runes) {
		ch := runes[i]
		switch ch {
		case ';':
			flushLiteral()
			if len(tokens) == 0 {
				return nil, []diag.Diagnostic{newDiagSpan(CodeParseError,
					fmt.Sprintf("Empty splice segment in pattern expression '%s'.", expression), span)}
			}
			segments = append(segments, Segment{Tokens: tokens})
			tokens = nil
			i++
			continue
		case '<':
			flushLiteral()
			close := indexRune(runes, '>', i+1)
			if close == -1 {
				return nil, []diag.Diagnostic{newDiagSpan(CodeParseError,
					fmt.Sprintf("Unterminated pattern group in '%s'.", expression), span)}
			}
			content := string(runes[i+1 : close])
			if strings.HasPrefix(content, "@") {
				name := content[1:]
				if name == "" {
					return nil, []diag.Diagnostic{newDiagSpan(CodeParseError,
						fmt.Sprintf("Empty named pattern reference in '%s'.", expression), span)}
				}
				if !isIdentifier(name) {
					return nil, []diag.Diagnostic{newDiagSpan(CodeParseError,
						fmt.Sprintf("Named pattern reference '%s' is not a valid identifier in '%s'.", name, expression), span)}
				}
				def, ok := namedPatterns[name]
				if !ok {
					return nil, []diag.Diagnostic{newDiagSpan(CodeParseError,
						fmt.Sprintf("Named pattern '%s' is undefined.", name), span)}
				}
				kind, labels, err := parseNamedGroup(def.Expr, expression)
				if err != "" {
					return nil, []diag.Diagnostic{newDiagSpan(CodeParseError, err, span)}
				}
				axisID := def.Tag
				if axisID == "" {
					axisID = name
				}
				if axisSeen[axisID] {
					return nil, []diag.Diagnostic{newDiagSpan(CodeParseError,
						fmt.Sprintf("Duplicate axis id '%s' in '%s'.", axisID, expression), span)}
				}
				axisSeen[axisID] = true
				order := len(axisOrder)
				axisOrder = append(axisOrder, axisID)
				axes = append(axes, Axis{ID: axisID, Labels: labels, Order: order})
				tokens = append(tokens, Token{Kind: kind, Labels: labels, AxisID: axisID})
			} else {
				kind, labels, err := parseGroupContent(content, expression)
				if err != "" {
					return nil, []diag.Diagnostic{newDiagSpan(CodeParseError, err, span)}
				}
				tokens = append(tokens, Token{Kind: kind, Labels: labels})
			}
			i = close + 1
			continue
		case '>', '[', ']', '|':
			return nil, []diag.Diagnostic{newDiagSpan(CodeParseError,
				fmt.Sprintf("Unexpected '%c' in pattern expression '%s'.", ch, expression), span)}
		default:
			literalBuf.WriteRune(ch)
			i++
		}
	}

	flushLiteral()
	if len(tokens) == 0 {
		return nil, []diag.Diagnostic{newDiagSpan(CodeParseError,
			fmt.Sprintf("Empty splice segment in pattern expression '%s'.", expression), span)}
	}
	segments = append(segments, Segment{Tokens: tokens})

	return &Expr{
		Raw:       expression,
		Segments:  segments,
		Axes:      axes,
		AxisOrder: axisOrder,
		Span:      span,
	}, nil
}

func newDiagSpan(code diag.Code, msg string, span *diag.Span) diag.Diagnostic {
	return diag.New(code, diag.ERROR, msg, span, "pattern")
}

func indexRune(runes []rune, target rune, from int) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !(unicode.IsLetter(r) || r == '_') {
				return false
			}
			continue
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}

func parseNamedGroup(expr, expression string) (TokenKind, []string, string) {
	if !strings.HasPrefix(expr, "<") || !strings.HasSuffix(expr, ">") {
		return Group, nil, fmt.Sprintf(
			"Named pattern definitions must be a single group token; got '%s' while parsing '%s'.", expr, expression)
	}
	content := expr[1 : len(expr)-1]
	return parseGroupContent(content, expression)
}

func parseGroupContent(content, expression string) (TokenKind, []string, string) {
	if content == "" {
		return Group, nil, fmt.Sprintf("Empty pattern group in '%s'.", expression)
	}
	if hasWhitespace(content) {
		return Group, nil, fmt.Sprintf("Whitespace is not allowed in '%s'.", expression)
	}
	if strings.ContainsAny(content, "<>[];") {
		return Group, nil, fmt.Sprintf("Nested pattern delimiters are not allowed in '%s'.", expression)
	}
	if strings.Contains(content, ":") {
		if strings.Contains(content, "|") {
			return Group, nil, fmt.Sprintf("Invalid range syntax in '%s'.", expression)
		}
		startText, endText, ok := splitRangeTokens(content)
		if !ok {
			return Range, nil, fmt.Sprintf("Invalid range syntax in '%s'.", expression)
		}
		start, errA := strconv.Atoi(startText)
		end, errB := strconv.Atoi(endText)
		if errA != nil || errB != nil {
			return Range, nil, fmt.Sprintf("Invalid range syntax in '%s'.", expression)
		}
		return Range, rangeLabels(start, end), ""
	}
	parts := strings.Split(content, "|")
	for _, p := range parts {
		if p == "" {
			return Group, nil, fmt.Sprintf("Empty enumeration in '%s'.", expression)
		}
	}
	return Group, parts, ""
}

func splitRangeTokens(content string) (string, string, bool) {
	if strings.Count(content, ":") != 1 {
		return "", "", false
	}
	parts := strings.SplitN(content, ":", 2)
	if parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// rangeLabels yields the inclusive numeric range in left-to-right expansion
// order (direction determined by sign of end-start, §3 "Pattern algebra").
func rangeLabels(start, end int) []string {
	var out []string
	if start <= end {
		for v := start; v <= end; v++ {
			out = append(out, strconv.Itoa(v))
		}
	} else {
		for v := start; v >= end; v-- {
			out = append(out, strconv.Itoa(v))
		}
	}
	return out
}

func hasWhitespace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
