/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/openaiexecutor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T, srv *httptest.Server, opts ...openaiexecutor.Option) *openaiexecutor.Model {
	t.Helper()
	client, err := openaiexecutor.NewClient(openaiexecutor.ClientConfig{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	m, err := openaiexecutor.New(client, opts...)
	require.NoError(t, err)
	return m
}

func TestGenerateParsesToolCalls(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
		  "id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "deepseek-chat",
		  "choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
		    "role": "assistant", "content": "",
		    "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "sandbox_exec", "arguments": "{\"command\":\"go test ./...\",\"timeout\":60000}"}}]
		  }}],
		  "usage": {"prompt_tokens": 20, "completion_tokens": 9, "total_tokens": 29}
		}`)
	}))
	defer srv.Close()

	resp, err := newModel(t, srv, openaiexecutor.WithModel("deepseek-chat")).Generate(context.Background(), executor.Request{
		System: "review",
		Messages: []executor.Message{
			{Role: executor.RoleUser, Text: "check it"},
			{Role: executor.RoleAssistant, Text: "reading", ToolCalls: []toolcall.ToolCall{{ID: "call_0", Name: "read_file", Args: map[string]any{"path": "a.go"}}}},
			{Role: executor.RoleTool, ToolResults: []toolcall.ToolResult{{ID: "call_0", Name: "read_file", Result: "package a"}}},
		},
		Tools: []toolcall.Definition{{Name: "sandbox_exec", Parameters: []toolcall.Parameter{{Name: "command", Type: "string", Required: true}}}},
	})
	require.NoError(t, err)

	want := &executor.Response{
		ToolCalls: []toolcall.ToolCall{{
			ID:   "call_1",
			Name: "sandbox_exec",
			Args: map[string]any{"command": "go test ./...", "timeout": float64(60000)},
		}},
		Usage:        executor.Usage{InputTokens: 20, OutputTokens: 9},
		FinishReason: executor.FinishToolCalls,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response (-want +got):\n%s", diff)
	}

	msgs, _ := body["messages"].([]any)
	require.Len(t, msgs, 4)
	roles := []string{}
	for _, m := range msgs {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool"}, roles)
	assert.Equal(t, "call_0", msgs[3].(map[string]any)["tool_call_id"])
	assert.Equal(t, "auto", body["tool_choice"])
}

func TestGenerateQuotaIsBilling(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"You exceeded your current quota, please check your plan and billing details.","type":"insufficient_quota","code":"insufficient_quota"}}`)
	}))
	defer srv.Close()

	_, err := newModel(t, srv, openaiexecutor.WithRetryConfig(retry.RetryConfig{MaxRetries: 3})).Generate(context.Background(), executor.Request{
		Messages: []executor.Message{{Role: executor.RoleUser, Text: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, retry.IsBilling(err), "got %v", err)
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()
	_, err := openaiexecutor.NewClient(openaiexecutor.ClientConfig{})
	assert.Error(t, err)
}
