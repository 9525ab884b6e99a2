/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/stream"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

const maxTitleRunes = 100

// verifyBugs turns the bug statements of report into bug cards. It does
// nothing when the main session already recorded bugs, when the report
// names no defect, or when it is a meta-summary.
func (o *Orchestrator) verifyBugs(ctx context.Context, st *runState, report string, req Request, em stream.Emitter) error {
	h := o.heuristics
	if st.bugs.len() > 0 || !h.HasBugVocabulary(report) || h.IsMetaSummary(report) {
		return nil
	}
	ctx = agenttrace.WithSession(ctx, agenttrace.SessionBugPass, 0)
	log := clog.FromContext(ctx)

	candidates := h.ExtractCandidates(report)
	if len(candidates) > o.maxCandidates {
		log.Infof("Verifying the first %d of %d bug candidates", o.maxCandidates, len(candidates))
		candidates = candidates[:o.maxCandidates]
	}

	switch {
	case len(candidates) > 0:
		if err := em.Emit(ctx, stream.Status(fmt.Sprintf("Verifying %d suspected bugs", len(candidates)))); err != nil {
			return err
		}
		for _, c := range candidates {
			prompt, err := buildVerifyPrompt(c, st.files)
			if err != nil {
				return err
			}
			if err := o.bugSession(ctx, st, req, em, prompt, CandidateMaxSteps, true); err != nil {
				return err
			}
		}

	case h.IsBugNarrative(report):
		if err := em.Emit(ctx, stream.Status("Extracting bugs from the review")); err != nil {
			return err
		}
		prompt, err := buildNarrativePrompt(report, st.files)
		if err != nil {
			return err
		}
		if err := o.bugSession(ctx, st, req, em, prompt, NarrativeMaxSteps, false); err != nil {
			return err
		}
	}

	if st.bugs.len() > 0 {
		return nil
	}
	log.Info("No bugs were recorded, adding unverified cards")
	if len(candidates) == 0 {
		candidates = []string{strings.TrimSpace(report)}
	}
	for _, c := range candidates {
		st.bugs.add(BugCard{
			Title:       title(c),
			Description: c,
			Status:      Unverified,
		})
	}
	return nil
}

// bugSession runs one verification session. With singleUse the sandbox
// runs at most once and the session stops after the first record_bug.
func (o *Orchestrator) bugSession(ctx context.Context, st *runState, req Request, em stream.Emitter, prompt string, maxSteps int, singleUse bool) error {
	session := newEvidenceLog()
	observe := func(ctx context.Context, run *sandbox.Run) {
		session.observe(ctx, run)
		st.evidence.observe(ctx, run)
	}

	tools := []toolcall.Tool{recordBugTool(st.bugs, session.latest)}
	if o.sandbox != nil {
		t := o.sandboxTool(ctx, observe, req.Confirmer, em)
		if singleUse {
			t = sandbox.SingleUse(t)
		}
		tools = append(tools, t)
	}
	reg, err := toolcall.NewRegistry(tools...)
	if err != nil {
		return err
	}

	res, err := o.exec.Run(ctx, executor.Session{
		Prompt:     prompt,
		System:     bugSystemPrompt,
		Tools:      reg,
		MaxSteps:   maxSteps,
		FinishTool: RecordBugToolName,
		OnStep: func(ctx context.Context, step executor.Step) error {
			if err := em.Emit(ctx, stream.StepEvent(step)); err != nil {
				return err
			}
			if singleUse && callsTool(step.ToolCalls, RecordBugToolName) {
				return executor.ErrStop
			}
			return nil
		},
	})
	st.addUsage(res)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stream.ErrClientDisconnected):
		return err
	case ctx.Err() != nil:
		return context.Cause(ctx)
	case retry.IsBilling(err):
		return fmt.Errorf("model provider rejected the request: %w", err)
	}
	clog.FromContext(ctx).Warnf("Bug verification session failed: %v", err)
	return nil
}

func callsTool(calls []toolcall.ToolCall, name string) bool {
	for _, c := range calls {
		if toolcall.SameName(c.Name, name) {
			return true
		}
	}
	return false
}

// title is the first line of s, shortened.
func title(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	line = strings.TrimLeft(line, "#-*• ")
	if utf8.RuneCountInString(line) <= maxTitleRunes {
		return line
	}
	return string([]rune(line)[:maxTitleRunes-3]) + "..."
}
