/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall/claudetool"
)

// Model is an executor.Model backed by the Anthropic Messages API.
type Model struct {
	client      anthropic.Client
	modelName   string
	maxTokens   int64
	temperature float64
	retryConfig retry.RetryConfig
}

var _ executor.Model = (*Model)(nil)

// New creates a Claude model with the given client.
func New(client anthropic.Client, opts ...Option) (*Model, error) {
	m := &Model{
		client:      client,
		modelName:   "claude-sonnet-4-5",
		maxTokens:   8192,
		temperature: 0.1,
		retryConfig: retry.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return m, nil
}

// Name implements executor.Model.
func (m *Model) Name() string { return m.modelName }

// Generate implements executor.Model.
func (m *Model) Generate(ctx context.Context, req executor.Request) (*executor.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 || maxTokens > m.maxTokens {
		maxTokens = m.maxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.modelName),
		MaxTokens:   maxTokens,
		Messages:    toMessageParams(req.Messages),
		Temperature: anthropic.Float(m.temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = claudetool.FromDefinitions(req.Tools)
		params.ToolChoice = claudetool.ToolChoice(req.ToolChoice)
	}

	msg, err := retry.RetryWithBackoff(ctx, m.retryConfig, "claude_messages", retry.IsRetryable, func() (*anthropic.Message, error) {
		msg, err := m.client.Messages.New(ctx, params)
		return msg, apiError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("claude %s: %w", m.modelName, err)
	}
	return fromMessage(ctx, msg), nil
}

func toMessageParams(msgs []executor.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case executor.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text)))

		case executor.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if strings.TrimSpace(msg.Text) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: call.Args,
					},
				})
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))

		case executor.RoleTool:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolResults))
			for _, r := range msg.ToolResults {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: r.ID,
						IsError:   anthropic.Bool(r.IsError),
						Content: []anthropic.ToolResultBlockParamContentUnion{{
							OfText: &anthropic.TextBlockParam{Text: nonEmpty(r.Text())},
						}},
					},
				})
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func fromMessage(ctx context.Context, msg *anthropic.Message) *executor.Response {
	resp := &executor.Response{
		Usage: executor.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}

	var texts []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					clog.FromContext(ctx).With("tool", block.Name).Warnf("Unparseable tool input: %v", err)
				}
			}
			resp.ToolCalls = append(resp.ToolCalls, toolcall.ToolCall{ID: block.ID, Name: block.Name, Args: args})
		}
	}
	resp.Text = strings.Join(texts, "\n")

	switch msg.StopReason {
	case anthropic.StopReasonMaxTokens:
		resp.FinishReason = executor.FinishLength
	case anthropic.StopReasonToolUse:
		resp.FinishReason = executor.FinishToolCalls
	default:
		resp.FinishReason = executor.FinishStop
	}
	return resp
}

// apiError converts SDK errors into *retry.HTTPError.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	httpErr := &retry.HTTPError{
		StatusCode: apiErr.StatusCode,
		Message:    apiErr.RawJSON(),
		Err:        err,
	}
	if apiErr.Response != nil {
		httpErr.RetryAfter, _ = retry.ParseRetryAfter(apiErr.Response.Header)
	}
	return httpErr
}

func nonEmpty(s string) string {
	if s == "" {
		return "(no output)"
	}
	return s
}
