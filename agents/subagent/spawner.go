/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package subagent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/metrics"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/submitresult"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// DefaultMaxSteps is the step budget of a sub-agent session.
const DefaultMaxSteps = 15

// Report is the outcome of one sub-agent goal.
type Report struct {
	Goal   string `json:"goal"`
	Report string `json:"report"`
	Err    error  `json:"-"`
}

// Spawner runs sub-agent sessions.
type Spawner struct {
	exec     executor.Interface
	base     *toolcall.Registry
	cache    *Cache
	maxSteps int
	metrics  *metrics.Review
}

// Option configures a Spawner.
type Option func(*Spawner) error

// WithMaxSteps sets the default step budget per goal.
func WithMaxSteps(n int) Option {
	return func(s *Spawner) error {
		if n <= 0 {
			return fmt.Errorf("max steps must be positive, got %d", n)
		}
		s.maxSteps = n
		return nil
	}
}

// WithCache shares a report cache. By default each Spawner has its own.
func WithCache(c *Cache) Option {
	return func(s *Spawner) error {
		if c == nil {
			return errors.New("cache cannot be nil")
		}
		s.cache = c
		return nil
	}
}

// WithMetrics records spawns on m.
func WithMetrics(m *metrics.Review) Option {
	return func(s *Spawner) error {
		s.metrics = m
		return nil
	}
}

// New creates a Spawner whose sessions run on exec and draw tools from base.
func New(exec executor.Interface, base *toolcall.Registry, opts ...Option) (*Spawner, error) {
	if exec == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if base == nil {
		base = toolcall.MustRegistry()
	}
	s := &Spawner{
		exec:     exec,
		base:     base,
		cache:    NewCache(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Cache returns the spawner's report cache.
func (s *Spawner) Cache() *Cache { return s.cache }

// SpawnOption adjusts a single Spawn call.
type SpawnOption func(*spawnConfig)

type spawnConfig struct {
	maxSteps int
	tools    []string
}

// MaxSteps overrides the step budget for one goal.
func MaxSteps(n int) SpawnOption {
	return func(c *spawnConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// Tools restricts one goal to the named base tools.
func Tools(names ...string) SpawnOption {
	return func(c *spawnConfig) { c.tools = names }
}

// Spawn runs one sub-agent session for goal and returns its report. It
// fails only when ctx ends or the model rejects the account (billing);
// every other problem degrades to a recovered or canned report.
func (s *Spawner) Spawn(ctx context.Context, goal string, opts ...SpawnOption) (string, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return "", errors.New("goal cannot be empty")
	}
	log := clog.FromContext(ctx).With("goal", clip(goal, 80))

	if report, ok := s.cache.Lookup(goal); ok {
		log.Info("Reusing cached sub-agent report")
		s.recordSpawn(ctx, true)
		return report, nil
	}
	s.recordSpawn(ctx, false)

	cfg := spawnConfig{maxSteps: s.maxSteps}
	for _, opt := range opts {
		opt(&cfg)
	}

	role, preflight := Role(goal)
	ctx = agenttrace.WithSession(ctx, agenttrace.SessionSubAgent, 0)

	tools, err := toolsFor(s.base, preflight, cfg.tools).With(submitresult.ReportTool(nil))
	if err != nil {
		return "", fmt.Errorf("building sub-agent tools: %w", err)
	}
	prompt, err := buildGoalPrompt(goal)
	if err != nil {
		return "", err
	}

	log.With("role", role).With("preflight", preflight).With("tools", tools.Len()).Info("Spawning sub-agent")
	res, runErr := s.exec.Run(ctx, executor.Session{
		Prompt:     prompt,
		System:     systemPrompt,
		Tools:      tools,
		MaxSteps:   cfg.maxSteps,
		FinishTool: submitresult.ReportToolName,
		OnStep:     stopAfterFinish,
	})
	if err := fatal(ctx, runErr); err != nil {
		return "", err
	}
	if runErr != nil {
		log.Warnf("Sub-agent session failed, recovering from partial steps: %v", runErr)
	}

	report, ok := submitresult.ExtractReport(res.ToolCalls, submitresult.ReportToolName)
	switch {
	case ok:
	case strings.TrimSpace(res.Text) != "":
		log.Info("Sub-agent did not submit a report; using its final text")
		report = strings.TrimSpace(res.Text)
	default:
		log.Info("Sub-agent produced nothing; forcing a report")
		report, err = s.forceReport(ctx, goal, res, "", nil)
		if err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(report) == "" {
		report = noReport(goal)
	}

	if preflight {
		if problems := QualityProblems(report); len(problems) > 0 {
			log.With("problems", problems).Info("Preflight report failed the quality gate; rewriting once")
			rewritten, err := s.forceReport(ctx, goal, res, report, problems)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(rewritten) != "" {
				report = rewritten
			}
		}
	}

	s.cache.Store(goal, report)
	return report, nil
}

// forceReport makes one single-step call whose only tool is submit_report.
func (s *Spawner) forceReport(ctx context.Context, goal string, res *executor.Result, draft string, problems []string) (string, error) {
	prompt, err := buildForcedPrompt(goal, res, draft, problems)
	if err != nil {
		return "", err
	}
	forced, runErr := s.exec.Run(ctx, executor.Session{
		Prompt:     prompt,
		System:     systemPrompt,
		Tools:      toolcall.MustRegistry(submitresult.ReportTool(nil)),
		MaxSteps:   1,
		ToolChoice: submitresult.ReportToolName,
		FinishTool: submitresult.ReportToolName,
	})
	if err := fatal(ctx, runErr); err != nil {
		return "", err
	}
	if runErr != nil {
		clog.WarnContextf(ctx, "Forced report call failed: %v", runErr)
	}
	report, _ := submitresult.ExtractReport(forced.ToolCalls, submitresult.ReportToolName)
	return report, nil
}

// fatal returns the errors a sub-agent cannot recover from.
func fatal(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return context.Cause(ctx)
	case retry.IsBilling(err):
		return err
	}
	return nil
}

func stopAfterFinish(_ context.Context, step executor.Step) error {
	for _, c := range step.ToolCalls {
		if toolcall.SameName(c.Name, submitresult.ReportToolName) {
			return executor.ErrStop
		}
	}
	return nil
}

func (s *Spawner) recordSpawn(ctx context.Context, cached bool) {
	if s.metrics != nil {
		s.metrics.RecordSpawn(ctx, cached)
	}
}
