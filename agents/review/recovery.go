/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/promptbuilder"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/stream"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
)

const noEvidence = "(no sandbox command ran to completion)"

// recoverySummary writes the report with one tool-less call and posts it
// through prov right away. If the call fails or returns nothing, the
// evidence itself becomes the report.
func (o *Orchestrator) recoverySummary(ctx context.Context, st *runState, reason *promptbuilder.Prompt, prov platform.Provider, em stream.Emitter) (string, error) {
	ctx = agenttrace.WithSession(ctx, agenttrace.SessionRecovery, 0)
	log := clog.FromContext(ctx)
	why, _ := reason.Build()
	log.With("reason", why).Info("Writing recovery summary")
	if err := em.Emit(ctx, stream.Status("Writing a recovery summary because "+why)); err != nil {
		return "", err
	}

	evidence := o.recoveryEvidence(st)
	prompt, err := buildRecoveryPrompt(reason, evidence, st.files, o.recoveryChars)
	if err != nil {
		return "", fmt.Errorf("building recovery prompt: %w", err)
	}
	res, err := o.exec.Run(ctx, executor.Session{
		Prompt:   prompt,
		System:   recoverySystemPrompt,
		MaxSteps: 1,
	})
	st.addUsage(res)
	if err != nil {
		if ctx.Err() != nil {
			return "", context.Cause(ctx)
		}
		if retry.IsBilling(err) {
			return "", fmt.Errorf("model provider rejected the request: %w", err)
		}
		log.Warnf("Recovery summary call failed: %v", err)
	}

	report := strings.TrimSpace(res.Text)
	if report == "" {
		if report, err = buildRecoveryFallback(reason, evidence); err != nil {
			return "", err
		}
	}

	if err := prov.PostReviewComment(ctx, report); err != nil {
		log.Warnf("Failed to post recovery summary: %v", err)
	} else {
		st.posted = true
	}
	return report, nil
}

// recoveryEvidence is the latest completed run of the looping command,
// or the latest completed run of any command.
func (o *Orchestrator) recoveryEvidence(st *runState) string {
	if st.looped {
		if run, ok := st.evidence.latestFor(st.loopSig); ok {
			return clip(run.String(), o.recoveryChars/4)
		}
	}
	if run, ok := st.evidence.latest(); ok {
		return clip(run.String(), o.recoveryChars/4)
	}
	return noEvidence
}
