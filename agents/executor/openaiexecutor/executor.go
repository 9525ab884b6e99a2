/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall/openaitool"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// Model is an executor.Model backed by the Chat Completions API.
type Model struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature *float64
	retryConfig retry.RetryConfig
}

var _ executor.Model = (*Model)(nil)

// New creates a chat completions model with the given client.
func New(client openai.Client, opts ...Option) (*Model, error) {
	m := &Model{
		client:      client,
		model:       "gpt-4.1",
		maxTokens:   8192,
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
func (m *Model) Name() string { return m.model }

// Generate implements executor.Model.
func (m *Model) Generate(ctx context.Context, req executor.Request) (*executor.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 || maxTokens > m.maxTokens {
		maxTokens = m.maxTokens
	}
	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(m.model),
		Messages:            toMessages(req.System, req.Messages),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
	if m.temperature != nil {
		params.Temperature = openai.Float(*m.temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = openaitool.FromDefinitions(req.Tools)
		params.ToolChoice = openaitool.ToolChoice(req.ToolChoice)
	}

	completion, err := retry.RetryWithBackoff(ctx, m.retryConfig, "openai_chat_completion", retry.IsRetryable, func() (*openai.ChatCompletion, error) {
		c, err := m.client.Chat.Completions.New(ctx, params)
		return c, apiError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("openai %s: %w", m.model, err)
	}
	return fromCompletion(ctx, completion), nil
}

func toMessages(system string, msgs []executor.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, msg := range msgs {
		switch msg.Role {
		case executor.RoleUser:
			out = append(out, openai.UserMessage(msg.Text))

		case executor.RoleAssistant:
			asst := openai.ChatCompletionAssistantMessageParam{}
			if msg.Text != "" {
				asst.Content.OfString = openai.String(msg.Text)
			}
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Args)
				if err != nil {
					args = []byte("{}")
				}
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})

		case executor.RoleTool:
			for _, r := range msg.ToolResults {
				out = append(out, openai.ToolMessage(r.Text(), r.ID))
			}
		}
	}
	return out
}

func fromCompletion(ctx context.Context, c *openai.ChatCompletion) *executor.Response {
	out := &executor.Response{
		Usage: executor.Usage{
			InputTokens:  c.Usage.PromptTokens,
			OutputTokens: c.Usage.CompletionTokens,
		},
		FinishReason: executor.FinishStop,
	}
	if len(c.Choices) == 0 {
		return out
	}
	choice := c.Choices[0]
	out.Text = choice.Message.Content

	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				clog.FromContext(ctx).With("tool", tc.Function.Name).Warnf("Unparseable tool arguments: %v", err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, toolcall.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}

	switch {
	case choice.FinishReason == "length":
		out.FinishReason = executor.FinishLength
	case len(out.ToolCalls) > 0:
		out.FinishReason = executor.FinishToolCalls
	}
	return out
}

// apiError converts SDK errors into *retry.HTTPError.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
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
