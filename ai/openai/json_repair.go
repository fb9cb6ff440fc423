// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import "strings"

// repairJSON fixes the formatting slips small models make most often in the
// filter response: a key missing its opening quote (`{column":` instead of
// `{"column":`) and a trailing comma before a closing bracket. Text inside
// string literals is left untouched.
func repairJSON(s string) string {
	src := []rune(s)
	var out strings.Builder
	out.Grow(len(s) + 8)

	inString := false
	escaped := false
	for i := 0; i < len(src); i++ {
		ch := src[i]

		if inString {
			out.WriteRune(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out.WriteRune(ch)
		case ',':
			// Drop the comma if only whitespace separates it from a closer.
			j := skipSpace(src, i+1)
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				continue
			}
			out.WriteRune(ch)
			i = writeKey(src, i+1, &out) - 1
		case '{':
			out.WriteRune(ch)
			i = writeKey(src, i+1, &out) - 1
		default:
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// writeKey copies whitespace starting at i and, if it is followed by a bare
// identifier that ends in `":`, writes the identifier with its missing
// opening quote. It returns the index of the first rune not consumed.
func writeKey(src []rune, i int, out *strings.Builder) int {
	j := skipSpace(src, i)
	out.WriteString(string(src[i:j]))

	k := j
	for k < len(src) && (isLetter(src[k]) || src[k] == '_') {
		k++
	}
	if k > j && k+1 < len(src) && src[k] == '"' && src[k+1] == ':' {
		out.WriteRune('"')
		out.WriteString(string(src[j : k+1]))
		return k + 1
	}
	return j
}

func skipSpace(src []rune, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\n' || src[i] == '\t' || src[i] == '\r') {
		i++
	}
	return i
}
