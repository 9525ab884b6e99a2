/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package subagent_test

import (
	"strings"
	"testing"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/subagent"
)

func TestQualityProblems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		report string
		want   string
	}{
		{name: "good", report: goodReport},
		{name: "empty", report: "  ", want: "empty"},
		{name: "missing sections", report: "## Summary\n- a\n- b\n- c", want: "missing sections"},
		{name: "few bullets", report: "## Summary\nok\n## Findings\n- one\n## Recommendations\n- two\n## Conclusion\ndone", want: "bullet points"},
		{name: "stalling", report: "Let me check the code first.\n" + goodReport, want: "stalling"},
		{name: "stalling chinese", report: "接下来我会检查代码\n" + goodReport, want: "stalling"},
		{name: "too long", report: goodReport + strings.Repeat("x", subagent.MaxReportChars), want: "too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := subagent.QualityProblems(tt.report)
			if tt.want == "" {
				if len(got) != 0 {
					t.Errorf("QualityProblems() = %v, wanted none", got)
				}
				return
			}
			if !strings.Contains(strings.Join(got, "; "), tt.want) {
				t.Errorf("QualityProblems() = %v, wanted %q", got, tt.want)
			}
		})
	}
}

func TestRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goal      string
		role      string
		preflight bool
	}{
		{"[Static Analysis Agent] lint", "Static Analysis Agent", true},
		{"  [security analysis agent] audit", "Security Analysis Agent", true},
		{"[Docs Agent] read docs", "Docs Agent", false},
		{"check [Static Analysis Agent] later", "", false},
		{"plain goal", "", false},
	}
	for _, tt := range tests {
		role, preflight := subagent.Role(tt.goal)
		if role != tt.role || preflight != tt.preflight {
			t.Errorf("Role(%q) = (%q, %v), wanted (%q, %v)", tt.goal, role, preflight, tt.role, tt.preflight)
		}
	}
}
