/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/claudeexecutor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolUseReply = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [
    {"type": "text", "text": "Let me look."},
    {"type": "tool_use", "id": "toolu_1", "name": "read_file", "input": {"path": "main.go"}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 12, "output_tokens": 7}
}`

func newModel(t *testing.T, srv *httptest.Server, opts ...claudeexecutor.Option) *claudeexecutor.Model {
	t.Helper()
	client, err := claudeexecutor.NewClient(context.Background(), claudeexecutor.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: retry.NewTransport(nil, retry.RetryConfig{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}).Client(),
	})
	require.NoError(t, err)
	m, err := claudeexecutor.New(client, opts...)
	require.NoError(t, err)
	return m
}

func TestGenerateParsesToolUse(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &body); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolUseReply)
	}))
	defer srv.Close()

	m := newModel(t, srv, claudeexecutor.WithModel("claude-sonnet-4-5"))
	resp, err := m.Generate(context.Background(), executor.Request{
		System: "You review code.",
		Messages: []executor.Message{
			{Role: executor.RoleUser, Text: "review main.go"},
			{Role: executor.RoleAssistant, ToolCalls: []toolcall.ToolCall{{ID: "toolu_0", Name: "glob", Args: map[string]any{"pattern": "*.go"}}}},
			{Role: executor.RoleTool, ToolResults: []toolcall.ToolResult{{ID: "toolu_0", Name: "glob", Result: "main.go"}}},
		},
		Tools: []toolcall.Definition{{
			Name:       "read_file",
			Parameters: []toolcall.Parameter{{Name: "path", Type: "string", Required: true}},
		}},
		ToolChoice: "read_file",
		MaxTokens:  1024,
	})
	require.NoError(t, err)

	want := &executor.Response{
		Text:         "Let me look.",
		ToolCalls:    []toolcall.ToolCall{{ID: "toolu_1", Name: "read_file", Args: map[string]any{"path": "main.go"}}},
		Usage:        executor.Usage{InputTokens: 12, OutputTokens: 7},
		FinishReason: executor.FinishToolCalls,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response (-want +got):\n%s", diff)
	}

	assert.Equal(t, "claude-sonnet-4-5", body["model"])
	assert.EqualValues(t, 1024, body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "tool", "name": "read_file"}, body["tool_choice"])
	msgs, _ := body["messages"].([]any)
	require.Len(t, msgs, 3)
	roles := []string{}
	for _, m := range msgs {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"user", "assistant", "user"}, roles)
}

func TestGenerateBalanceErrorIsBilling(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"insufficient_balance","message":"Your credit balance is too low"}}`)
	}))
	defer srv.Close()

	m := newModel(t, srv, claudeexecutor.WithRetryConfig(retry.RetryConfig{MaxRetries: 0}))
	_, err := m.Generate(context.Background(), executor.Request{
		Messages: []executor.Message{{Role: executor.RoleUser, Text: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, retry.Billing, retry.Classify(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestGenerateRetriesOverloaded(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if hits.Add(1) == 1 {
			w.WriteHeader(529)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"LGTM"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":1}}`)
	}))
	defer srv.Close()

	resp, err := newModel(t, srv).Generate(context.Background(), executor.Request{
		Messages: []executor.Message{{Role: executor.RoleUser, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "LGTM", resp.Text)
	assert.Equal(t, executor.FinishStop, resp.FinishReason)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	for name, opt := range map[string]claudeexecutor.Option{
		"model":       claudeexecutor.WithModel("gpt-4o"),
		"tokens":      claudeexecutor.WithMaxTokens(64000),
		"temperature": claudeexecutor.WithTemperature(1.5),
		"retry":       claudeexecutor.WithRetryConfig(retry.RetryConfig{MaxRetries: -1}),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			client, err := claudeexecutor.NewClient(context.Background(), claudeexecutor.ClientConfig{APIKey: "k"})
			require.NoError(t, err)
			_, err = claudeexecutor.New(client, opt)
			assert.Error(t, err)
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()
	_, err := claudeexecutor.NewClient(context.Background(), claudeexecutor.ClientConfig{})
	assert.Error(t, err)
}
