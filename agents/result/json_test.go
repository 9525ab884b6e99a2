/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result_test

import (
	"testing"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/result"
	"github.com/google/go-cmp/cmp"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{{
		name:  "fenced block with prose around it",
		input: "Here are the bugs:\n```json\n[{\"title\": \"nil deref\"}]\n```\nThat is all.",
		want:  `[{"title": "nil deref"}]`,
	}, {
		name:  "indented fence",
		input: "  ```json\n  {\"a\": 1}\n  ```",
		want:  `{"a": 1}`,
	}, {
		name:  "empty fenced block",
		input: "```json\n```",
		want:  "",
	}, {
		name:  "bare fence",
		input: "```\n{\"a\": 1}\n```",
		want:  `{"a": 1}`,
	}, {
		name:  "no fence",
		input: "  {\"a\": 1}  ",
		want:  `{"a": 1}`,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result.ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	type card struct {
		Title string `json:"title"`
		Line  int    `json:"line"`
	}
	got, err := result.Extract[[]card]("```json\n[{\"title\": \"off by one\", \"line\": 12}]\n```")
	if err != nil {
		t.Fatalf("Extract() = %v", err)
	}
	if diff := cmp.Diff([]card{{Title: "off by one", Line: 12}}, got); diff != "" {
		t.Errorf("Extract() (-want +got):\n%s", diff)
	}

	if _, err := result.Extract[card]("not json at all"); err == nil {
		t.Error("expected error for non-JSON input")
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		keys  []string
		want  string
	}{
		{"plain text", "## Summary\nok", nil, "## Summary\nok"},
		{"json string", `"## Summary\nok"`, nil, "## Summary\nok"},
		{"object field", `{"report": "## Summary"}`, []string{"report"}, "## Summary"},
		{"second key", `{"summary": "done"}`, []string{"report", "summary"}, "done"},
		{"object without key", `{"other": 1}`, []string{"report"}, `{"other": 1}`},
		{"broken json", `{"report": `, []string{"report"}, `{"report": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result.Text(tt.input, tt.keys...); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
