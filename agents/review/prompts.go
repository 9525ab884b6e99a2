/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/promptbuilder"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/subagent"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
)

const systemPrompt = `You are an expert code reviewer. You review a change for correctness, security, performance and maintainability, and you back every claim with code you have read or commands you have run. You never modify the repository.`

const bugSystemPrompt = `You verify suspected bugs in a code change. You are precise and skeptical: a bug is VERIFIED only when command output demonstrates it.`

const recoverySystemPrompt = `You write the final summary of a code review from the material you are given. You cannot run tools.`

var reviewPrompt = promptbuilder.MustNewPrompt(`Review the following code change.

Changed files:
{{files}}

Changes:
{{changes}}
{{preflight}}
Investigate with the available tools and read the surrounding code where the diff alone is not enough. When you suspect a bug you may verify it with sandbox_exec; a non-zero exit code is valid evidence. Record each bug you are confident about with record_bug.

When the review is complete, call submit_summary exactly once with the full review in markdown. The review is not delivered unless submit_summary is called.`)

var preflightSection = promptbuilder.MustNewPrompt(`
Specialized sub-agents already analyzed the change. Use their reports as leads and confirm them before relying on them.

{{reports}}
`)

var retrySection = promptbuilder.MustNewPrompt(`

## Attempt {{attempt}} did not finish

The previous attempt ended without calling submit_summary. This is what it found.

Tool results:
{{results}}

Final text:
{{text}}

Continue the review from where it stopped and do not repeat work that is already done. You must call submit_summary with the complete review this time.`)

// Reasons a review falls back to a recovery summary.
var (
	reasonLoop        = promptbuilder.MustNewPrompt(`the same sandbox command kept running without progress`)
	reasonMetaSummary = promptbuilder.MustNewPrompt(`the final answer described waiting for approval instead of concluding`)
	reasonNoReport    = promptbuilder.MustNewPrompt(`no final review was produced`)
)

var recoveryPrompt = promptbuilder.MustNewPrompt(`The automated review was interrupted because {{reason}}.

Write the final review from the material below. Do not ask for approval and do not propose further commands.

Latest sandbox evidence:
{{evidence}}

Changed file contents:
{{files}}

Write a concise markdown review: what the change does, the defects the evidence or the code supports, and recommendations.`)

var recoveryFallback = promptbuilder.MustNewPrompt(`## Review summary

The review was interrupted because {{reason}}, and no summary could be written. The latest sandbox evidence is below.

{{evidence}}
`)

var verifyPrompt = promptbuilder.MustNewPrompt(`Verify this suspected bug from a code review:
{{candidate}}

Changed files:
{{files}}

You may run at most one sandbox_exec command to demonstrate the bug, for example a focused test or a small script. Then call record_bug exactly once. Mark it VERIFIED only if the command output demonstrates the bug; otherwise mark it UNVERIFIED and say what is missing.`)

var narrativePrompt = promptbuilder.MustNewPrompt(`The code review below describes bugs without listing them one by one.
{{review}}

Changed files:
{{files}}

Call record_bug once for every distinct bug it describes. You may run sandbox_exec to verify them. Mark a bug VERIFIED only when sandbox output demonstrates it.`)

// preflightFocus is the task given to each analysis role.
var preflightFocus = map[string]string{
	"Static Analysis Agent":      "code quality, error handling, unused code and API misuse",
	"Logic Analysis Agent":       "logic errors, edge cases, off-by-one mistakes and incorrect control flow",
	"Performance Analysis Agent": "performance problems such as needless allocation, quadratic loops and blocking calls",
	"Security Analysis Agent":    "security problems such as injection, unsafe input handling, leaked secrets and missing authorization",
}

const (
	maxFileChars   = 20000
	maxResultChars = 600
	maxRetryChars  = 8000
)

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n...[truncated]"
}

func preflightGoals(files []platform.File) []string {
	names := strings.Join(platform.Names(files), ", ")
	goals := make([]string, 0, len(subagent.PreflightRoles))
	for _, role := range subagent.PreflightRoles {
		task := fmt.Sprintf("Analyze the changed files (%s) for %s.", names, preflightFocus[role])
		goals = append(goals, subagent.PreflightGoal(role, task))
	}
	return goals
}

func fileHeader(f platform.File) string {
	var meta []string
	if f.Status != "" {
		meta = append(meta, f.Status)
	}
	if f.Additions > 0 || f.Deletions > 0 {
		meta = append(meta, fmt.Sprintf("+%d/-%d", f.Additions, f.Deletions))
	}
	if len(meta) == 0 {
		return "=== " + f.Name + " ==="
	}
	return fmt.Sprintf("=== %s (%s) ===", f.Name, strings.Join(meta, ", "))
}

// renderChanges shows the diff of each file when there is one and its
// content otherwise.
func renderChanges(files []platform.File, perFile int) string {
	var sb strings.Builder
	for _, f := range files {
		body := f.Content
		if f.Diff != "" {
			body = f.Diff
		}
		fmt.Fprintf(&sb, "%s\n%s\n\n", fileHeader(f), strings.TrimRight(clip(body, perFile), "\n"))
	}
	return sb.String()
}

// renderContents shows full file contents until limit characters are used.
func renderContents(files []platform.File, limit int) string {
	var sb strings.Builder
	for _, f := range files {
		left := limit - sb.Len()
		if left <= 0 {
			sb.WriteString("...[remaining files omitted]\n")
			break
		}
		fmt.Fprintf(&sb, "%s\n%s\n\n", fileHeader(f), strings.TrimRight(clip(f.Content, left), "\n"))
	}
	return sb.String()
}

func buildReviewPrompt(files []platform.File, reports []subagent.Report) (string, error) {
	var section *promptbuilder.Prompt
	if len(reports) > 0 {
		var sb strings.Builder
		for _, r := range reports {
			role, _ := subagent.Role(r.Goal)
			fmt.Fprintf(&sb, "#### %s\n\n%s\n\n", role, strings.TrimSpace(r.Report))
		}
		var err error
		if section, err = preflightSection.BindFenced("reports", "markdown", sb.String()); err != nil {
			return "", err
		}
	}
	p, err := reviewPrompt.BindYAML("files", platform.Names(files))
	if err != nil {
		return "", err
	}
	if p, err = p.BindFenced("changes", "", renderChanges(files, maxFileChars)); err != nil {
		return "", err
	}
	if p, err = p.BindPrompt("preflight", section); err != nil {
		return "", err
	}
	return p.Build()
}

// buildRetrySection summarizes a failed attempt for the next one.
func buildRetrySection(attempt int, res *executor.Result, evidence *evidenceLog) (string, error) {
	var sb strings.Builder
	if res != nil {
		for _, r := range res.ToolResults {
			text := r.Text()
			if e, ok := evidence.forCall(r.ID); ok {
				text = e
			}
			args, _ := json.Marshal(r.Args)
			entry := fmt.Sprintf("- %s(%s): %s\n", r.Name, clip(string(args), 200), clip(strings.TrimSpace(text), maxResultChars))
			if sb.Len()+len(entry) > maxRetryChars {
				sb.WriteString("- ... (further results omitted)\n")
				break
			}
			sb.WriteString(entry)
		}
	}
	if sb.Len() == 0 {
		sb.WriteString("(no tool calls)")
	}
	text := "(none)"
	if res != nil && strings.TrimSpace(res.Text) != "" {
		text = res.Text
	}

	p, err := retrySection.BindJSON("attempt", attempt)
	if err != nil {
		return "", err
	}
	if p, err = p.BindFenced("results", "", sb.String()); err != nil {
		return "", err
	}
	if p, err = p.BindFenced("text", "markdown", clip(text, maxRetryChars)); err != nil {
		return "", err
	}
	return p.Build()
}

func buildRecoveryPrompt(reason *promptbuilder.Prompt, evidence string, files []platform.File, limit int) (string, error) {
	p, err := recoveryPrompt.BindPrompt("reason", reason)
	if err != nil {
		return "", err
	}
	if p, err = p.BindFenced("evidence", "", evidence); err != nil {
		return "", err
	}
	if p, err = p.BindFenced("files", "", renderContents(files, limit)); err != nil {
		return "", err
	}
	return p.Build()
}

func buildRecoveryFallback(reason *promptbuilder.Prompt, evidence string) (string, error) {
	p, err := recoveryFallback.BindPrompt("reason", reason)
	if err != nil {
		return "", err
	}
	if p, err = p.BindFenced("evidence", "", evidence); err != nil {
		return "", err
	}
	return p.Build()
}

func buildVerifyPrompt(candidate string, files []platform.File) (string, error) {
	p, err := verifyPrompt.BindFenced("candidate", "text", candidate)
	if err != nil {
		return "", err
	}
	if p, err = p.BindYAML("files", platform.Names(files)); err != nil {
		return "", err
	}
	return p.Build()
}

func buildNarrativePrompt(report string, files []platform.File) (string, error) {
	p, err := narrativePrompt.BindFenced("review", "markdown", report)
	if err != nil {
		return "", err
	}
	if p, err = p.BindYAML("files", platform.Names(files)); err != nil {
		return "", err
	}
	return p.Build()
}
