/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"context"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// Model is one language model behind a provider adapter.
type Model interface {
	// Name identifies the model in traces and metrics.
	Name() string
	// Generate produces one round of text and tool calls.
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool messages carry the results of the preceding assistant calls.
	RoleTool Role = "tool"
)

// Message is one entry of the conversation history.
type Message struct {
	Role        Role                  `json:"role"`
	Text        string                `json:"text,omitempty"`
	ToolCalls   []toolcall.ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []toolcall.ToolResult `json:"toolResults,omitempty"`
}

// Request is what the driver hands a Model for one round.
type Request struct {
	System   string
	Messages []Message
	Tools    []toolcall.Definition
	// ToolChoice forces a call to the named tool when set.
	ToolChoice string
	MaxTokens  int64
}

// Response is one round of model output, already parsed into typed calls.
type Response struct {
	Text         string
	ToolCalls    []toolcall.ToolCall
	Usage        Usage
	FinishReason FinishReason
}

// Usage counts tokens.
type Usage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
	}
}

// Total is input plus output tokens.
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// FinishReason says why a round or a session ended.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
	// FinishMaxSteps is only reported for sessions, never by a Model.
	FinishMaxSteps FinishReason = "max_steps"
)
