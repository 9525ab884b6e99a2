/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package submitresult

import (
	"encoding/json"
	"strings"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/result"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// reportKeys are the argument names models use for the report body.
var reportKeys = []string{"report", "summary", "content", "result"}

// ExtractReport returns the report argument of the last call to toolName
// (matched by normalized name) that carried a non-empty one. JSON-encoded
// reports are decoded.
func ExtractReport(calls []toolcall.ToolCall, toolName string) (string, bool) {
	for i := len(calls) - 1; i >= 0; i-- {
		call := calls[i]
		if !toolcall.SameName(call.Name, toolName) {
			continue
		}
		if text := reportText(call.Args); strings.TrimSpace(text) != "" {
			return text, true
		}
	}
	return "", false
}

func reportText(args map[string]any) string {
	for _, key := range reportKeys {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		switch r := v.(type) {
		case string:
			return result.Text(r, reportKeys...)
		case map[string]any:
			if nested := reportText(r); nested != "" {
				return nested
			}
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err == nil {
			return string(b)
		}
	}
	return ""
}
