/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package modeltest provides a scripted executor.Model for tests.
package modeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// Reply produces the model's answer to one request.
type Reply func(ctx context.Context, req executor.Request) (*executor.Response, error)

// Model replays a script of replies, one per Generate call. It is safe
// for concurrent use.
type Model struct {
	name string

	mu       sync.Mutex
	script   []Reply
	fallback Reply
	requests []executor.Request
}

var _ executor.Model = (*Model)(nil)

// New returns a model that answers the i-th call with replies[i].
func New(replies ...Reply) *Model {
	return &Model{name: "scripted", script: replies}
}

// Named sets the model name reported to traces and metrics.
func (m *Model) Named(name string) *Model {
	m.name = name
	return m
}

// Then sets the reply used once the script is exhausted.
func (m *Model) Then(r Reply) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = r
	return m
}

// Name implements executor.Model.
func (m *Model) Name() string { return m.name }

// Generate implements executor.Model.
func (m *Model) Generate(ctx context.Context, req executor.Request) (*executor.Response, error) {
	m.mu.Lock()
	n := len(m.requests)
	m.requests = append(m.requests, req)
	reply := m.fallback
	if n < len(m.script) {
		reply = m.script[n]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, fmt.Errorf("modeltest: script exhausted after %d calls", len(m.script))
	}
	return reply(ctx, req)
}

// Calls is the number of Generate calls so far.
func (m *Model) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *Model) Requests() []executor.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]executor.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Func adapts a plain function into a Model.
type Func func(ctx context.Context, req executor.Request) (*executor.Response, error)

// Name implements executor.Model.
func (Func) Name() string { return "func" }

// Generate implements executor.Model.
func (f Func) Generate(ctx context.Context, req executor.Request) (*executor.Response, error) {
	return f(ctx, req)
}

// Text replies with plain text and no tool calls.
func Text(text string) Reply {
	return func(context.Context, executor.Request) (*executor.Response, error) {
		return &executor.Response{
			Text:         text,
			Usage:        executor.Usage{InputTokens: 10, OutputTokens: int64(len(text))},
			FinishReason: executor.FinishStop,
		}, nil
	}
}

// Call replies with a single tool call.
func Call(name string, args map[string]any) Reply {
	return Calls(toolcall.ToolCall{Name: name, Args: args})
}

// Calls replies with the given tool calls.
func Calls(calls ...toolcall.ToolCall) Reply {
	return func(context.Context, executor.Request) (*executor.Response, error) {
		return &executor.Response{
			ToolCalls:    calls,
			Usage:        executor.Usage{InputTokens: 10, OutputTokens: 5},
			FinishReason: executor.FinishToolCalls,
		}, nil
	}
}

// Fail replies with err.
func Fail(err error) Reply {
	return func(context.Context, executor.Request) (*executor.Response, error) {
		return nil, err
	}
}

// Block waits for the context to end and returns its error.
func Block() Reply {
	return func(ctx context.Context, _ executor.Request) (*executor.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

// LastUserText returns the text of the most recent user message.
func LastUserText(req executor.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == executor.RoleUser {
			return req.Messages[i].Text
		}
	}
	return ""
}
