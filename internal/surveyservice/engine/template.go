/*******************************************************************************
* Copyright (C) 2026 the Elicit Survey Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package engine

import "strings"

// ExpandTemplate substitutes tokens into a display text.
//
// Token regions have two shapes: {TOKEN} is replaced by the token's value;
// {TOKEN|default} falls back to default when TOKEN is absent from the map.
// A default may itself contain token regions, which are resolved
// recursively. A braced region whose token is unknown and that carries no
// default is kept literally.
//
// After substitution the possessive fixups are applied: " her's" → " her",
// " his's" → " his", " Your's" → " Your", and the global "s's" → "s'".
func ExpandTemplate(text string, tokens map[string]string) string {
	out := expandRegions(text, tokens, 0)

	out = strings.ReplaceAll(out, " her's", " her")
	out = strings.ReplaceAll(out, " his's", " his")
	out = strings.ReplaceAll(out, " Your's", " Your")
	out = strings.ReplaceAll(out, "s's", "s'")
	return out
}

// maxExpandDepth bounds nested-default recursion on malformed definitions.
const maxExpandDepth = 16

func expandRegions(s string, tokens map[string]string, depth int) string {
	if depth > maxExpandDepth || !strings.ContainsRune(s, '{') {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '{' {
			b.WriteByte(s[i])
			i++
			continue
		}

		end := matchingBrace(s, i)
		if end < 0 {
			// Unbalanced region, keep the rest literally.
			b.WriteString(s[i:])
			break
		}

		name, def, hasDefault := splitRegion(s[i+1 : end])
		if value, ok := tokens[name]; ok {
			b.WriteString(value)
		} else if hasDefault {
			b.WriteString(expandRegions(def, tokens, depth+1))
		} else {
			b.WriteString(s[i : end+1])
		}
		i = end + 1
	}
	return b.String()
}

// matchingBrace returns the index of the brace closing the region opened at
// open, or -1 when the region never closes.
func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitRegion cuts a region body at its first top-level '|' into token name
// and default.
func splitRegion(body string) (name, def string, hasDefault bool) {
	depth := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '|':
			if depth == 0 {
				return body[:i], body[i+1:], true
			}
		}
	}
	return body, "", false
}
