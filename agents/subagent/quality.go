/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package subagent

import (
	"fmt"
	"regexp"
	"strings"
)

// RequiredSections are the headers every report must contain.
var RequiredSections = []string{"## Summary", "## Findings", "## Recommendations", "## Conclusion"}

const (
	// MinBullets is the minimum number of bullet points in a report.
	MinBullets = 3
	// MaxReportChars is the report size ceiling.
	MaxReportChars = 12000
)

var (
	bulletLine = regexp.MustCompile(`(?m)^\s*(?:[-*+•]|\d+[.)])\s+\S`)
	stalling   = regexp.MustCompile(`(?i)^\s*(?:now\s+let\s+me|let\s+me|i\s+will\s+now|i'll\s+now|next,?\s+i\s+will|接下来|让我|现在我)`)
)

// QualityProblems lists the reasons a report fails the quality gate. An
// empty result means the report passes.
func QualityProblems(report string) []string {
	report = strings.TrimSpace(report)
	if report == "" {
		return []string{"the report is empty"}
	}

	var problems []string
	var missing []string
	lower := strings.ToLower(report)
	for _, h := range RequiredSections {
		if !strings.Contains(lower, strings.ToLower(h)) {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		problems = append(problems, "missing sections: "+strings.Join(missing, ", "))
	}
	if n := len(bulletLine.FindAllStringIndex(report, -1)); n < MinBullets {
		problems = append(problems, fmt.Sprintf("only %d bullet points (need at least %d)", n, MinBullets))
	}
	if stalling.MatchString(report) {
		problems = append(problems, "starts with a stalling phrase instead of findings")
	}
	if n := len([]rune(report)); n > MaxReportChars {
		problems = append(problems, fmt.Sprintf("too long (%d characters, limit %d)", n, MaxReportChars))
	}
	return problems
}
