/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package subagent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/promptbuilder"
)

const systemPrompt = `You are a specialized code analysis sub-agent. You investigate one goal for a code reviewer and report what you found with evidence. You never modify files.`

var goalPrompt = promptbuilder.MustNewPrompt(`Your goal:
{{goal}}

Use the available tools to gather evidence from the repository. Do not guess. Cite files and line numbers for every finding.

When you are done, call submit_report exactly once with a markdown report that has these sections:

## Summary
## Findings
## Recommendations
## Conclusion

Use bullet points for findings and recommendations. The submit_report call must be your last action.`)

var forcedPrompt = promptbuilder.MustNewPrompt(`You are finishing a code analysis task.

Goal:
{{goal}}

Evidence gathered so far:
{{evidence}}
{{draft}}
Write the final report from this evidence only. Do not invent facts, files or line numbers that do not appear above. If the evidence is insufficient, say so.

Call submit_report now. The report must contain the sections ## Summary, ## Findings, ## Recommendations and ## Conclusion, with at least three bullet points.`)

var draftSection = promptbuilder.MustNewPrompt(`
A previous draft was rejected:
{{problems}}

Rejected draft:
{{report}}
`)

const (
	maxEvidenceChars = 12000
	maxArgChars      = 300
	maxResultChars   = 1500
)

// evidenceDump renders the tool activity of a session compactly.
func evidenceDump(res *executor.Result) string {
	if res == nil || len(res.ToolResults) == 0 {
		if res != nil && strings.TrimSpace(res.Text) != "" {
			return clip(res.Text, maxEvidenceChars)
		}
		return "(no tool calls were made)"
	}

	var sb strings.Builder
	for _, r := range res.ToolResults {
		args, _ := json.Marshal(r.Args)
		entry := fmt.Sprintf("- %s(%s)\n%s\n", r.Name, clip(string(args), maxArgChars), indent(clip(r.Text(), maxResultChars)))
		if sb.Len()+len(entry) > maxEvidenceChars {
			sb.WriteString("- ... (further tool results omitted)\n")
			break
		}
		sb.WriteString(entry)
	}
	return sb.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...[truncated]"
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n    ")
}

func buildGoalPrompt(goal string) (string, error) {
	return goalPrompt.MustBindFenced("goal", "text", goal).Build()
}

func buildForcedPrompt(goal string, res *executor.Result, draft string, problems []string) (string, error) {
	var section *promptbuilder.Prompt
	if len(problems) > 0 {
		var err error
		section, err = draftSection.BindYAML("problems", problems)
		if err != nil {
			return "", err
		}
		if section, err = section.BindFenced("report", "markdown", draft); err != nil {
			return "", err
		}
	}
	p, err := forcedPrompt.BindFenced("goal", "text", goal)
	if err != nil {
		return "", err
	}
	if p, err = p.BindFenced("evidence", "", evidenceDump(res)); err != nil {
		return "", err
	}
	if p, err = p.BindPrompt("draft", section); err != nil {
		return "", err
	}
	return p.Build()
}

// noReport is returned when every recovery step failed.
func noReport(goal string) string {
	return fmt.Sprintf(`## Summary
No report produced for this goal: %s

## Findings
- The sub-agent finished without submitting a report.
- No evidence was summarized.
- Treat this area as not analyzed.

## Recommendations
- Review this area manually.

## Conclusion
No report produced.`, goal)
}
