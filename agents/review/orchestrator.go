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
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/metrics"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/stream"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/subagent"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/submitresult"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
	"github.com/google/uuid"
)

const (
	DefaultMaxAttempts   = 3
	DefaultMaxSteps      = 30
	DefaultLoopThreshold = 4
	DefaultRecoveryChars = 60000
	DefaultMaxCandidates = 5

	// CandidateMaxSteps bounds the session verifying one bug candidate.
	CandidateMaxSteps = 6
	// NarrativeMaxSteps bounds the session extracting bugs from prose.
	NarrativeMaxSteps = 10
)

// ErrNoChangedFiles is returned when a review has nothing to look at.
var ErrNoChangedFiles = errors.New("no changed files to review")

var errSandboxLoop = errors.New("sandbox command loop detected")

// State is the terminal state of a review.
type State string

const (
	// StateSubmitted means the model called submit_summary.
	StateSubmitted State = "submitted"
	// StateExhausted means every attempt ended without a submission and
	// the last attempt's text became the report.
	StateExhausted State = "exhausted"
	// StateRecovered means the report came from a recovery summary.
	StateRecovered State = "recovered"
)

// Request is one review.
type Request struct {
	Files []platform.File
	// Kind names where the files came from, for traces and metrics.
	Kind platform.Kind
	// Platform receives the report; nil discards it.
	Platform platform.Provider
	// Emitter receives the event stream; nil discards it.
	Emitter stream.Emitter
	// Confirmer approves sandbox commands; nil denies them all.
	Confirmer sandbox.Confirmer
}

// Outcome is the result of a finished review.
type Outcome struct {
	RunID    string         `json:"runId"`
	State    State          `json:"state"`
	Report   string         `json:"report"`
	Bugs     []BugCard      `json:"bugs"`
	Usage    platform.Usage `json:"usage"`
	Attempts int            `json:"attempts"`
}

// Orchestrator runs reviews. It is safe for concurrent use; every Run
// has its own state.
type Orchestrator struct {
	exec          executor.Interface
	execOpts      []executor.Option
	base          *toolcall.Registry
	sandbox       *sandbox.Executor
	heuristics    Heuristics
	backoff       retry.RetryConfig
	maxAttempts   int
	maxSteps      int
	loopThreshold int
	recoveryChars int
	maxCandidates int
	subagents     bool
	preflight     int
	skipBugPass   bool
	metrics       *metrics.Review
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithExecutorOptions passes options to the executor built over the model.
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(o *Orchestrator) error {
		o.execOpts = append(o.execOpts, opts...)
		return nil
	}
}

// WithSandbox offers sandbox_exec backed by e.
func WithSandbox(e *sandbox.Executor) Option {
	return func(o *Orchestrator) error {
		o.sandbox = e
		return nil
	}
}

// WithHeuristics replaces the text classifiers. Nil fields keep their defaults.
func WithHeuristics(h Heuristics) Option {
	return func(o *Orchestrator) error {
		o.heuristics = h.withDefaults()
		return nil
	}
}

// WithBackoff sets the delays between attempts that failed with a
// retryable model error.
func WithBackoff(cfg retry.RetryConfig) Option {
	return func(o *Orchestrator) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.backoff = cfg
		return nil
	}
}

// WithMaxAttempts sets the attempt budget.
func WithMaxAttempts(n int) Option {
	return positive("max attempts", n, func(o *Orchestrator) { o.maxAttempts = n })
}

// WithMaxSteps sets the step budget of each attempt.
func WithMaxSteps(n int) Option {
	return positive("max steps", n, func(o *Orchestrator) { o.maxSteps = n })
}

// WithLoopThreshold sets how many identical sandbox-only steps in a row
// stop a session.
func WithLoopThreshold(n int) Option {
	return positive("loop threshold", n, func(o *Orchestrator) { o.loopThreshold = n })
}

// WithRecoveryChars caps the file content given to a recovery summary.
func WithRecoveryChars(n int) Option {
	return positive("recovery chars", n, func(o *Orchestrator) { o.recoveryChars = n })
}

// WithMaxCandidates caps the bug candidates verified per review.
func WithMaxCandidates(n int) Option {
	return positive("max candidates", n, func(o *Orchestrator) { o.maxCandidates = n })
}

// WithSubAgents offers spawn_subagent to the main session.
func WithSubAgents() Option {
	return func(o *Orchestrator) error {
		o.subagents = true
		return nil
	}
}

// WithPreflight runs one sub-agent per analysis role before the first
// attempt, concurrency at a time.
func WithPreflight(concurrency int) Option {
	return positive("preflight concurrency", concurrency, func(o *Orchestrator) { o.preflight = concurrency })
}

// WithoutBugPass skips verifying the bugs a report describes.
func WithoutBugPass() Option {
	return func(o *Orchestrator) error {
		o.skipBugPass = true
		return nil
	}
}

// WithMetrics records attempts, outcomes, sandbox runs and spawns on m.
func WithMetrics(m *metrics.Review) Option {
	return func(o *Orchestrator) error {
		o.metrics = m
		return nil
	}
}

func positive(what string, n int, set func(*Orchestrator)) Option {
	return func(o *Orchestrator) error {
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", what, n)
		}
		set(o)
		return nil
	}
}

// New creates an Orchestrator whose sessions run on model with the base
// tools.
func New(model executor.Model, base *toolcall.Registry, opts ...Option) (*Orchestrator, error) {
	if model == nil {
		return nil, errors.New("model cannot be nil")
	}
	if base == nil {
		base = toolcall.MustRegistry()
	}
	o := &Orchestrator{
		base:          base,
		heuristics:    DefaultHeuristics(),
		backoff:       retry.DefaultRetryConfig(),
		maxAttempts:   DefaultMaxAttempts,
		maxSteps:      DefaultMaxSteps,
		loopThreshold: DefaultLoopThreshold,
		recoveryChars: DefaultRecoveryChars,
		maxCandidates: DefaultMaxCandidates,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	exec, err := executor.New(model, o.execOpts...)
	if err != nil {
		return nil, err
	}
	o.exec = exec
	return o, nil
}

// Run performs one review. It emits exactly one complete or error event
// unless the client disconnects first. The error is non-nil when the
// review could not produce a report.
func (o *Orchestrator) Run(ctx context.Context, req Request) (out *Outcome, err error) {
	em := req.Emitter
	if em == nil {
		em = stream.Discard
	}
	prov := req.Platform
	if prov == nil {
		prov = platform.NewLocal(nil, "")
	}
	if req.Confirmer == nil {
		req.Confirmer = sandbox.DenyAll
	}

	runID := uuid.NewString()
	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		RunID:    runID,
		Platform: string(req.Kind),
		RepoID:   prov.RepoID(),
		Session:  agenttrace.SessionReview,
	})
	log := clog.FromContext(ctx).With("run_id", runID)
	ctx = clog.WithLogger(ctx, log)

	defer func() {
		if err == nil {
			return
		}
		o.recordOutcome(ctx, "error")
		if errors.Is(err, stream.ErrClientDisconnected) {
			log.Info("Client disconnected, abandoning review")
			return
		}
		log.Errorf("Review failed: %v", err)
		if emitErr := em.Emit(context.WithoutCancel(ctx), stream.Error(err.Error())); emitErr != nil {
			log.Warnf("Failed to emit error event: %v", emitErr)
		}
	}()

	if len(req.Files) == 0 {
		return nil, ErrNoChangedFiles
	}
	if err := em.Emit(ctx, stream.Files(platform.Names(req.Files))); err != nil {
		return nil, err
	}

	st := newRunState(req.Files, o.loopThreshold)
	tools, err := o.sessionTools(ctx, st, req, em)
	if err != nil {
		return nil, err
	}
	reports, err := o.runPreflight(ctx, st, em)
	if err != nil {
		return nil, err
	}
	if st.prompt, err = buildReviewPrompt(req.Files, reports); err != nil {
		return nil, fmt.Errorf("building review prompt: %w", err)
	}

	state, err := o.attempts(ctx, st, tools, em)
	if err != nil {
		return nil, err
	}

	report, state, err := o.resolveReport(ctx, st, state, prov, em)
	if err != nil {
		return nil, err
	}

	if !o.skipBugPass {
		if err := o.verifyBugs(ctx, st, report, req, em); err != nil {
			return nil, err
		}
	}

	out = &Outcome{
		RunID:    runID,
		State:    state,
		Report:   report,
		Bugs:     st.bugs.list(),
		Usage:    st.platformUsage(),
		Attempts: st.attempt,
	}
	o.deliver(ctx, st, prov, out)

	if err := em.Emit(ctx, stream.Complete(out.Report, out.Bugs, out.Usage)); err != nil {
		return out, err
	}
	o.recordOutcome(ctx, string(out.State))
	log.With("state", out.State).With("attempts", out.Attempts).With("bugs", len(out.Bugs)).Info("Review complete")
	return out, nil
}

// sessionTools is the main session's registry: base tools plus the
// review tools.
func (o *Orchestrator) sessionTools(ctx context.Context, st *runState, req Request, em stream.Emitter) (*toolcall.Registry, error) {
	extra := []toolcall.Tool{
		submitresult.SummaryTool(nil),
		recordBugTool(st.bugs, st.evidence.latest),
	}
	if o.sandbox != nil {
		extra = append(extra, o.sandboxTool(ctx, st.evidence.observe, req.Confirmer, em))
	}
	tools, err := o.base.With(extra...)
	if err != nil {
		return nil, fmt.Errorf("building review tools: %w", err)
	}
	if !o.subagents && o.preflight == 0 {
		return tools, nil
	}

	st.spawner, err = subagent.New(o.exec, tools, subagent.WithMetrics(o.metrics))
	if err != nil {
		return nil, err
	}
	if !o.subagents {
		return tools, nil
	}
	return tools.With(subagent.NewTool(st.spawner))
}

// sandboxTool builds sandbox_exec for one review, forwarding its events
// to em.
func (o *Orchestrator) sandboxTool(ctx context.Context, onRun func(context.Context, *sandbox.Run), confirm sandbox.Confirmer, em stream.Emitter) toolcall.Tool {
	return sandbox.NewTool(o.sandbox, sandbox.ToolConfig{
		Confirmer: confirm,
		OnEvent: func(ev sandbox.Event) {
			if err := em.Emit(ctx, stream.SandboxRun(ev)); err != nil {
				clog.FromContext(ctx).Debugf("Dropping sandbox event: %v", err)
			}
		},
		OnRun: onRun,
	})
}

func (o *Orchestrator) runPreflight(ctx context.Context, st *runState, em stream.Emitter) ([]subagent.Report, error) {
	if o.preflight == 0 || st.spawner == nil {
		return nil, nil
	}
	goals := preflightGoals(st.files)
	if err := em.Emit(ctx, stream.Preflight("start", len(goals))); err != nil {
		return nil, err
	}
	reports := st.spawner.RunGoals(ctx, goals, o.preflight)
	for _, r := range reports {
		if r.Err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		if retry.IsBilling(r.Err) {
			return nil, fmt.Errorf("preflight analysis: %w", r.Err)
		}
	}
	if err := em.Emit(ctx, stream.Preflight("end", len(goals))); err != nil {
		return nil, err
	}
	return reports, nil
}

// attempts runs the attempt loop and returns how it ended.
func (o *Orchestrator) attempts(ctx context.Context, st *runState, tools *toolcall.Registry, em stream.Emitter) (State, error) {
	log := clog.FromContext(ctx)
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		st.attempt = attempt
		actx := agenttrace.WithSession(ctx, agenttrace.SessionReview, attempt)
		o.recordAttempt(actx)

		msg := fmt.Sprintf("Reviewing %d changed files", len(st.files))
		if attempt > 1 {
			msg = fmt.Sprintf("Continuing review (attempt %d of %d)", attempt, o.maxAttempts)
		}
		if err := em.Emit(ctx, stream.Status(msg)); err != nil {
			return "", err
		}

		res, err := o.attempt(actx, st, tools, em)
		st.absorb(res)
		switch {
		case errors.Is(err, stream.ErrClientDisconnected):
			return "", err
		case errors.Is(err, errSandboxLoop):
			return StateRecovered, nil
		case st.submitted:
			return StateSubmitted, nil
		case err != nil && ctx.Err() != nil:
			return "", context.Cause(ctx)
		case err != nil:
			switch retry.Classify(err) {
			case retry.Billing:
				return "", fmt.Errorf("model provider rejected the request: %w", err)
			case retry.Fatal:
				return "", err
			}
			log.With("attempt", attempt).Warnf("Attempt failed with a retryable error: %v", err)
			if attempt == o.maxAttempts {
				continue
			}
			hint, _ := retry.RetryAfter(err)
			delay := retry.Backoff(o.backoff, attempt-1, hint)
			if err := em.Emit(ctx, stream.Status(fmt.Sprintf("Model request failed, retrying in %s", delay.Round(100*time.Millisecond)))); err != nil {
				return "", err
			}
			if err := retry.Sleep(ctx, delay); err != nil {
				return "", err
			}
		default:
			log.With("attempt", attempt).With("finish_reason", res.FinishReason).Info("Attempt ended without submit_summary")
		}

		if attempt < o.maxAttempts && res != nil && len(res.Steps) > 0 {
			section, err := buildRetrySection(attempt, res, st.evidence)
			if err != nil {
				return "", fmt.Errorf("building retry prompt: %w", err)
			}
			st.prompt += section
		}
	}
	log.With("attempts", o.maxAttempts).Warn("Review attempts exhausted without submit_summary")
	return StateExhausted, nil
}

// attempt runs one session of the main review.
func (o *Orchestrator) attempt(ctx context.Context, st *runState, tools *toolcall.Registry, em stream.Emitter) (*executor.Result, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	st.loop.reset()

	return o.exec.Run(ctx, executor.Session{
		Prompt:     st.prompt,
		System:     systemPrompt,
		Tools:      tools,
		MaxSteps:   o.maxSteps,
		FinishTool: submitresult.SummaryToolName,
		OnFinish: func(step executor.Step) {
			report, _ := submitresult.ExtractReport(step.ToolCalls, submitresult.SummaryToolName)
			st.submit(report)
		},
		OnStep: func(ctx context.Context, step executor.Step) error {
			if err := em.Emit(ctx, stream.StepEvent(step)); err != nil {
				return err
			}
			if st.submitted {
				return executor.ErrStop
			}
			if st.loop.observe(step) {
				st.looped, st.loopSig = true, st.loop.last
				clog.FromContext(ctx).With("command", st.loopSig.Command).With("repeats", st.loop.count).
					Warn("Sandbox command loop detected, stopping the session")
				cancel(errSandboxLoop)
				return errSandboxLoop
			}
			return nil
		},
	})
}

// resolveReport turns the end of the attempt loop into a report.
func (o *Orchestrator) resolveReport(ctx context.Context, st *runState, state State, prov platform.Provider, em stream.Emitter) (string, State, error) {
	reason := reasonNoReport
	switch state {
	case StateSubmitted:
		report := strings.TrimSpace(st.report)
		if report == "" {
			report = strings.TrimSpace(st.lastText)
		}
		if !o.heuristics.IsMetaSummary(report) {
			return report, state, nil
		}
		if report != "" {
			reason = reasonMetaSummary
		}

	case StateRecovered:
		reason = reasonLoop

	default:
		report := strings.TrimSpace(st.lastText)
		if !o.heuristics.IsMetaSummary(report) {
			return report, StateExhausted, nil
		}
		if report != "" {
			reason = reasonMetaSummary
		}
	}

	report, err := o.recoverySummary(ctx, st, reason, prov, em)
	return report, StateRecovered, err
}

func (o *Orchestrator) recordAttempt(ctx context.Context) {
	if o.metrics != nil {
		o.metrics.RecordAttempt(ctx)
	}
}

func (o *Orchestrator) recordOutcome(ctx context.Context, state string) {
	if o.metrics != nil {
		o.metrics.RecordOutcome(ctx, state)
	}
}
