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


package langchain

import "strings"

// outermostObject returns the text between the first '{' and the last '}',
// dropping any preamble or trailing commentary the model added.
// Input without a brace pair is returned unchanged.
func outermostObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// repairJSON fixes two slips models make in otherwise valid JSON:
// trailing commas before a closing bracket, and keys that lost their opening
// quote (`, type":` becomes `, "type":`). String contents are left untouched.
func repairJSON(s string) string {
	src := []rune(s)
	out := make([]rune, 0, len(src)+16)
	inString := false
	escaped := false

	for i := 0; i < len(src); i++ {
		ch := src[i]

		if inString {
			out = append(out, ch)
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
			out = append(out, ch)

		case ',':
			j := skipSpace(src, i+1)
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				// Trailing comma
				continue
			}
			out = append(out, ch)
			out = appendKey(out, src, &i)

		case '{':
			out = append(out, ch)
			out = appendKey(out, src, &i)

		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

// appendKey looks past src[*i] for a bare identifier followed by `":` and, if
// found, emits it with its missing opening quote and advances *i past it.
func appendKey(out, src []rune, i *int) []rune {
	j := skipSpace(src, *i+1)
	k := j
	for k < len(src) && isKeyRune(src[k]) {
		k++
	}
	if k == j || k+1 >= len(src) || src[k] != '"' || src[k+1] != ':' {
		return out
	}
	out = append(out, src[*i+1:j]...)
	out = append(out, '"')
	out = append(out, src[j:k]...)
	out = append(out, '"')
	*i = k
	return out
}

func skipSpace(src []rune, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\n' || src[i] == '\t' || src[i] == '\r') {
		i++
	}
	return i
}
