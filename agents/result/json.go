/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ExtractJSON extracts JSON content from a text response that may contain markdown code blocks.
// It looks for content between ```json and ``` markers, or returns the input trimmed if no markers are found.
func ExtractJSON(responseText string) string {
	lines := strings.Split(responseText, "\n")
	var jsonBuffer bytes.Buffer
	inJSONBlock := false
	foundJSON := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inJSONBlock && trimmed == "```json" {
			inJSONBlock = true
			foundJSON = true
			continue
		}
		if inJSONBlock && trimmed == "```" {
			break
		}
		if inJSONBlock {
			if jsonBuffer.Len() > 0 {
				jsonBuffer.WriteString("\n")
			}
			jsonBuffer.WriteString(line)
		}
	}

	if foundJSON {
		return strings.TrimSpace(jsonBuffer.String())
	}

	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	return strings.TrimSpace(responseText)
}

// Extract extracts JSON content from a text response and unmarshals it into the provided type.
func Extract[T any](responseText string) (T, error) {
	var result T
	if err := json.Unmarshal([]byte(ExtractJSON(responseText)), &result); err != nil {
		return result, err
	}
	return result, nil
}

// LooksLikeJSON reports whether s, once trimmed, is delimited like a JSON
// object, array or string.
func LooksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	switch {
	case s[0] == '{' && s[len(s)-1] == '}':
		return true
	case s[0] == '[' && s[len(s)-1] == ']':
		return true
	case s[0] == '"' && s[len(s)-1] == '"':
		return true
	}
	return false
}

// Text unwraps text a model may have JSON-encoded: a JSON string decodes
// to its value, an object yields its first non-empty string field among
// keys, and anything else is returned unchanged.
func Text(s string, keys ...string) string {
	if !LooksLikeJSON(s) {
		return s
	}
	raw := ExtractJSON(s)

	var str string
	if err := json.Unmarshal([]byte(raw), &str); err == nil {
		return str
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		for _, k := range keys {
			if v, ok := obj[k].(string); ok && strings.TrimSpace(v) != "" {
				return v
			}
		}
	}
	return s
}
