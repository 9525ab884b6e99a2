/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"strings"
	"unicode"
)

// NormalizeName maps a tool name to its canonical snake_case key.
// "SubmitReport", "submit-report", "SUBMIT_REPORT" and "submit report"
// all normalize to "submit_report".
func NormalizeName(name string) string {
	runes := []rune(strings.TrimSpace(name))
	var sb strings.Builder
	sb.Grow(len(runes) + 4)

	lastUnderscore := true
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || r == '/' || unicode.IsSpace(r):
			if !lastUnderscore {
				sb.WriteByte('_')
				lastUnderscore = true
			}
			continue
		case unicode.IsUpper(r):
			if i > 0 && !lastUnderscore {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				// fooBar, foo1Bar, HTTPServer -> http_server
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(unicode.ToLower(r))
		}
		lastUnderscore = false
	}
	return strings.TrimSuffix(sb.String(), "_")
}

// SameName reports whether two tool names refer to the same tool once
// case and separators are ignored.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
