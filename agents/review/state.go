/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"context"
	"sync"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/subagent"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
)

// runState is everything one review accumulates.
type runState struct {
	files   []platform.File
	prompt  string
	attempt int

	mu        sync.Mutex
	usage     executor.Usage
	toolUsage map[string]int

	submitted bool
	report    string
	lastText  string

	evidence *evidenceLog
	bugs     *bugBook
	loop     loopDetector
	looped   bool
	loopSig  sandbox.Signature
	posted   bool
	spawner  *subagent.Spawner
}

func newRunState(files []platform.File, loopThreshold int) *runState {
	return &runState{
		files:     files,
		toolUsage: map[string]int{},
		evidence:  newEvidenceLog(),
		bugs:      &bugBook{},
		loop:      loopDetector{threshold: loopThreshold},
	}
}

// submit records the step that called submit_summary.
func (s *runState) submit(report string) {
	s.submitted = true
	s.report = report
}

// absorb folds a finished attempt into the state.
func (s *runState) absorb(res *executor.Result) {
	s.addUsage(res)
	if res != nil && res.Text != "" {
		s.lastText = res.Text
	}
}

func (s *runState) addUsage(res *executor.Result) {
	if res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = s.usage.Add(res.Usage)
	for _, c := range res.ToolCalls {
		s.toolUsage[toolcall.NormalizeName(c.Name)]++
	}
}

func (s *runState) platformUsage() platform.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	tools := make(map[string]int, len(s.toolUsage))
	for k, v := range s.toolUsage {
		tools[k] = v
	}
	return platform.Usage{InputTokens: s.usage.InputTokens, OutputTokens: s.usage.OutputTokens, Tools: tools}
}

// evidenceLog keeps what sandbox runs produced.
type evidenceLog struct {
	mu     sync.Mutex
	byCall map[string]string
	runs   []*sandbox.Run
}

func newEvidenceLog() *evidenceLog {
	return &evidenceLog{byCall: map[string]string{}}
}

// observe is a sandbox.ToolConfig.OnRun hook.
func (l *evidenceLog) observe(_ context.Context, run *sandbox.Run) {
	if run == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if run.ToolCallID != "" {
		l.byCall[run.ToolCallID] = run.String()
	}
	if completed(run) {
		l.runs = append(l.runs, run)
	}
}

// forCall returns the rendered run of a sandbox_exec tool call.
func (l *evidenceLog) forCall(id string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	text, ok := l.byCall[id]
	return text, ok
}

// latest returns the most recent run that ran to completion.
func (l *evidenceLog) latest() (*sandbox.Run, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.runs) == 0 {
		return nil, false
	}
	return l.runs[len(l.runs)-1], true
}

// latestFor returns the most recent completed run matching sig.
func (l *evidenceLog) latestFor(sig sandbox.Signature) (*sandbox.Run, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.runs) - 1; i >= 0; i-- {
		r := l.runs[i]
		if r.Command == sig.Command && normCwd(r.Cwd) == normCwd(sig.Cwd) {
			return r, true
		}
	}
	return nil, false
}

// completed is true for runs that executed, whatever their exit code.
func completed(run *sandbox.Run) bool {
	return run.Status == sandbox.StatusSuccess || run.Status == sandbox.StatusNonzero
}

func normCwd(cwd string) string {
	if cwd == "" {
		return "."
	}
	return cwd
}

// loopDetector counts consecutive steps that only call sandbox_exec with
// one and the same signature.
type loopDetector struct {
	threshold int
	last      sandbox.Signature
	count     int
}

func (d *loopDetector) reset() {
	d.last, d.count = sandbox.Signature{}, 0
}

// observe reports whether step completes a run of threshold identical
// sandbox-only steps.
func (d *loopDetector) observe(step executor.Step) bool {
	sig, ok := sandboxOnly(step.ToolCalls)
	switch {
	case !ok:
		d.reset()
		return false
	case d.count > 0 && sig == d.last:
		d.count++
	default:
		d.last, d.count = sig, 1
	}
	return d.threshold > 0 && d.count >= d.threshold
}

func sandboxOnly(calls []toolcall.ToolCall) (sandbox.Signature, bool) {
	if len(calls) == 0 {
		return sandbox.Signature{}, false
	}
	var sig sandbox.Signature
	for i, c := range calls {
		if !toolcall.SameName(c.Name, sandbox.ToolName) {
			return sandbox.Signature{}, false
		}
		s := sandbox.SignatureOf(c)
		if i > 0 && s != sig {
			return sandbox.Signature{}, false
		}
		sig = s
	}
	return sig, true
}
