/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/metrics"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// ErrStop is returned from Session.OnStep to end a session without error.
var ErrStop = errors.New("stop session")

// Interface runs model sessions.
type Interface interface {
	// Run drives one session. On error the returned *Result is still
	// non-nil and holds the steps completed before the failure.
	Run(ctx context.Context, s Session) (*Result, error)
}

// Session describes one conversation.
type Session struct {
	Prompt string
	System string
	// Tools is the immutable tool snapshot for this session; nil means no tools.
	Tools *toolcall.Registry
	// MaxSteps bounds the number of rounds; zero uses the executor default.
	MaxSteps int
	// ToolChoice forces every round to call the named tool.
	ToolChoice string
	// FinishTool names the tool whose call counts as submitting the artifact.
	FinishTool string
	// OnFinish fires once, in the step that first calls FinishTool.
	OnFinish func(Step)
	// OnStep observes each completed step and is awaited before the next round.
	OnStep func(ctx context.Context, step Step) error
}

// Step is one model round plus the dispatch of its tool calls.
// Steps are never modified after OnStep sees them.
type Step struct {
	Index        int                   `json:"index"`
	Text         string                `json:"text,omitempty"`
	ToolCalls    []toolcall.ToolCall   `json:"toolCalls"`
	ToolResults  []toolcall.ToolResult `json:"toolResults"`
	Usage        Usage                 `json:"usage"`
	FinishReason FinishReason          `json:"finishReason,omitempty"`
}

// Result is everything a session produced.
type Result struct {
	// Text is the last non-empty text the model produced.
	Text         string
	ToolCalls    []toolcall.ToolCall
	ToolResults  []toolcall.ToolResult
	Steps        []Step
	FinishReason FinishReason
	Usage        Usage
	// Finished reports whether FinishTool was called.
	Finished bool
}

type executor struct {
	model        Model
	maxSteps     int
	maxTokens    int64
	stepDelay    time.Duration
	genaiMetrics *metrics.GenAI
}

// New creates an executor over model.
func New(model Model, opts ...Option) (Interface, error) {
	if model == nil {
		return nil, errors.New("model cannot be nil")
	}
	e := &executor{
		model:        model,
		maxSteps:     20,
		maxTokens:    8192,
		genaiMetrics: metrics.NewGenAI(metrics.MeterName),
	}
	e.genaiMetrics.SetAttributeEnricher(metrics.ExecutionContextEnricher)
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return e, nil
}

// Run implements Interface.
func (e *executor) Run(ctx context.Context, s Session) (res *Result, err error) {
	res = &Result{}
	if s.Prompt == "" {
		return res, errors.New("session prompt cannot be empty")
	}
	maxSteps := s.MaxSteps
	if maxSteps <= 0 {
		maxSteps = e.maxSteps
	}
	tools := s.Tools
	if tools == nil {
		tools = toolcall.MustRegistry()
	}

	trace := agenttrace.StartTrace(ctx, s.Prompt)
	defer func() {
		trace.Complete(res.Text, err)
	}()

	log := clog.FromContext(ctx).With("model", e.model.Name())
	log.With("prompt_length", len(s.Prompt)).With("tools", len(tools.Names())).With("max_steps", maxSteps).
		Debug("Starting agent session")

	req := Request{
		System:     s.System,
		Messages:   []Message{{Role: RoleUser, Text: s.Prompt}},
		Tools:      tools.Definitions(),
		ToolChoice: s.ToolChoice,
		MaxTokens:  e.maxTokens,
	}

	for i := 0; i < maxSteps; i++ {
		if i > 0 && e.stepDelay > 0 {
			if err := retry.Sleep(ctx, e.stepDelay); err != nil {
				return res, err
			}
		}
		if err := ctx.Err(); err != nil {
			return res, context.Cause(ctx)
		}

		resp, err := e.model.Generate(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("step %d: %w", i, context.Cause(ctx))
			}
			return res, fmt.Errorf("step %d: %w", i, err)
		}

		if resp.Usage.InputTokens > 0 || resp.Usage.OutputTokens > 0 {
			e.genaiMetrics.RecordTokens(ctx, e.model.Name(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
		trace.RecordStep(e.model.Name(), resp.Usage.InputTokens, resp.Usage.OutputTokens)

		calls := assignCallIDs(i, resp.ToolCalls)
		step := Step{
			Index:        i,
			Text:         resp.Text,
			ToolCalls:    calls,
			ToolResults:  make([]toolcall.ToolResult, 0, len(calls)),
			Usage:        resp.Usage,
			FinishReason: resp.FinishReason,
		}
		if step.FinishReason == "" {
			step.FinishReason = FinishStop
			if len(calls) > 0 {
				step.FinishReason = FinishToolCalls
			}
		}

		for _, call := range calls {
			e.genaiMetrics.RecordToolCall(ctx, e.model.Name(), call.Name)
			step.ToolResults = append(step.ToolResults, e.dispatch(ctx, trace, tools, call))
		}

		req.Messages = append(req.Messages, Message{Role: RoleAssistant, Text: resp.Text, ToolCalls: calls})
		if len(calls) > 0 {
			req.Messages = append(req.Messages, Message{Role: RoleTool, ToolResults: step.ToolResults})
		}

		res.Steps = append(res.Steps, step)
		res.ToolCalls = append(res.ToolCalls, step.ToolCalls...)
		res.ToolResults = append(res.ToolResults, step.ToolResults...)
		res.Usage = res.Usage.Add(step.Usage)
		if step.Text != "" {
			res.Text = step.Text
		}

		if !res.Finished && s.FinishTool != "" && callsTool(calls, s.FinishTool) {
			res.Finished = true
			if s.OnFinish != nil {
				s.OnFinish(step)
			}
		}

		if s.OnStep != nil {
			if err := s.OnStep(ctx, step); err != nil {
				if errors.Is(err, ErrStop) {
					log.With("step", i).Debug("Session stopped by observer")
					res.FinishReason = FinishStop
					return res, nil
				}
				return res, err
			}
		}

		if len(calls) == 0 {
			res.FinishReason = step.FinishReason
			if res.FinishReason == FinishToolCalls {
				res.FinishReason = FinishStop
			}
			return res, nil
		}
	}

	log.With("max_steps", maxSteps).Info("Agent session reached its step budget")
	res.FinishReason = FinishMaxSteps
	return res, nil
}

// dispatch executes one call. Unknown tools, handler errors and panics
// all become error results; none of them end the session.
func (e *executor) dispatch(ctx context.Context, trace *agenttrace.Trace, tools *toolcall.Registry, call toolcall.ToolCall) (result toolcall.ToolResult) {
	result = toolcall.ToolResult{ID: call.ID, Name: call.Name, Args: call.Args}

	tool, ok := tools.Lookup(call.Name)
	if !ok {
		err := fmt.Errorf("unknown tool %q", call.Name)
		clog.FromContext(ctx).With("tool", call.Name).Warn("Model requested an unknown tool")
		trace.BadToolCall(call.ID, call.Name, call.Args, err)
		result.Result = toolcall.ResultText(err)
		result.IsError = true
		return result
	}

	tc := trace.StartToolCall(call.ID, tool.Name(), call.Args)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
			clog.FromContext(ctx).With("tool", tool.Name()).Errorf("Recovered tool panic: %v", r)
			tc.Complete(nil, err)
			result.Result = toolcall.ResultText(err)
			result.IsError = true
		}
	}()

	out, err := tool.Handler(ctx, call)
	tc.Complete(out, err)
	if err != nil {
		clog.FromContext(ctx).With("tool", tool.Name()).With("error", err).Debug("Tool returned an error")
		result.Result = toolcall.ResultText(err)
		result.IsError = true
		return result
	}
	result.Result = out
	return result
}

func callsTool(calls []toolcall.ToolCall, name string) bool {
	for _, c := range calls {
		if toolcall.SameName(c.Name, name) {
			return true
		}
	}
	return false
}

// assignCallIDs fills in ids for providers that do not return them.
func assignCallIDs(step int, calls []toolcall.ToolCall) []toolcall.ToolCall {
	out := make([]toolcall.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = fmt.Sprintf("call_%d_%d", step, i)
		}
		if c.Args == nil {
			c.Args = map[string]any{}
		}
		out[i] = c
	}
	return out
}
