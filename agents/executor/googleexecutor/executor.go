/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall/googletool"
	"google.golang.org/genai"
)

// Model is an executor.Model backed by the genai GenerateContent API.
type Model struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
	thinkingBudget  *int32
	retryConfig     retry.RetryConfig
}

var _ executor.Model = (*Model)(nil)

// New creates a Gemini model with the given client.
func New(client *genai.Client, opts ...Option) (*Model, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	m := &Model{
		client:          client,
		model:           "gemini-2.5-flash",
		temperature:     0.1,
		maxOutputTokens: 8192,
		retryConfig:     retry.DefaultRetryConfig(),
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
	log := clog.FromContext(ctx).With("model", m.model)

	maxTokens := m.maxOutputTokens
	if req.MaxTokens > 0 && req.MaxTokens < int64(maxTokens) {
		maxTokens = int32(req.MaxTokens)
	}
	temperature := m.temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxTokens,
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if len(req.Tools) > 0 {
		config.Tools = googletool.FromDefinitions(req.Tools)
		config.ToolConfig = googletool.ToolConfig(req.ToolChoice)
	}
	if m.thinkingBudget != nil {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: m.thinkingBudget}
	}

	history := toContents(req.Messages)
	resp, err := m.generate(ctx, history, config)
	if err != nil {
		return nil, err
	}
	usage := usageOf(resp)

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMalformedFunctionCall {
		names := make([]string, 0, len(req.Tools))
		for _, d := range req.Tools {
			names = append(names, d.Name)
		}
		log.With("functions", names).Warn("Malformed function call, asking the model to try again")
		history = append(history, &genai.Content{
			Role: genai.RoleUser,
			Parts: []*genai.Part{{
				Text: fmt.Sprintf("The function call was malformed. Please try again using the available functions: %v", names),
			}},
		})
		if resp, err = m.generate(ctx, history, config); err != nil {
			return nil, err
		}
		usage = usage.Add(usageOf(resp))
	}

	out := fromResponse(resp)
	out.Usage = usage
	return out, nil
}

func (m *Model) generate(ctx context.Context, history []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := retry.RetryWithBackoff(ctx, m.retryConfig, "gemini_generate", retry.IsRetryable, func() (*genai.GenerateContentResponse, error) {
		resp, err := m.client.Models.GenerateContent(ctx, m.model, history, config)
		return resp, apiError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", m.model, err)
	}
	return resp, nil
}

func toContents(msgs []executor.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case executor.RoleUser:
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: msg.Text}}})

		case executor.RoleAssistant:
			var parts []*genai.Part
			if strings.TrimSpace(msg.Text) != "" {
				parts = append(parts, &genai.Part{Text: msg.Text})
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: call.Args,
				}})
			}
			if len(parts) > 0 {
				out = append(out, &genai.Content{Role: genai.RoleModel, Parts: parts})
			}

		case executor.RoleTool:
			parts := make([]*genai.Part, 0, len(msg.ToolResults))
			for _, r := range msg.ToolResults {
				key := "output"
				if r.IsError {
					key = "error"
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       r.ID,
					Name:     r.Name,
					Response: map[string]any{key: r.Text()},
				}})
			}
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: parts})
		}
	}
	return out
}

func fromResponse(resp *genai.GenerateContentResponse) *executor.Response {
	out := &executor.Response{FinishReason: executor.FinishStop}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	candidate := resp.Candidates[0]

	var texts []string
	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, toolcall.ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: args,
			})
		case part.Thought:
			// reasoning is not part of the answer
		case part.Text != "":
			texts = append(texts, part.Text)
		}
	}
	out.Text = strings.Join(texts, "")

	switch {
	case candidate.FinishReason == genai.FinishReasonMaxTokens:
		out.FinishReason = executor.FinishLength
	case len(out.ToolCalls) > 0:
		out.FinishReason = executor.FinishToolCalls
	}
	return out
}

func usageOf(resp *genai.GenerateContentResponse) executor.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return executor.Usage{}
	}
	return executor.Usage{
		InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
	}
}

// apiError converts genai API errors into *retry.HTTPError.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &retry.HTTPError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &retry.HTTPError{StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message, Err: err}
	}
	return err
}
