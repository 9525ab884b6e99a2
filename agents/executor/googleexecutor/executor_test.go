/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/googleexecutor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T, srv *httptest.Server, opts ...googleexecutor.Option) *googleexecutor.Model {
	t.Helper()
	client, err := googleexecutor.NewClient(context.Background(), googleexecutor.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	m, err := googleexecutor.New(client, opts...)
	require.NoError(t, err)
	return m
}

func TestGenerateParsesFunctionCalls(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
		  "candidates": [{
		    "content": {"role": "model", "parts": [
		      {"text": "thinking out loud", "thought": true},
		      {"text": "Checking."},
		      {"functionCall": {"name": "read_file", "args": {"path": "a.go"}}}
		    ]},
		    "finishReason": "STOP"
		  }],
		  "usageMetadata": {"promptTokenCount": 5, "candidatesTokenCount": 2}
		}`)
	}))
	defer srv.Close()

	resp, err := newModel(t, srv).Generate(context.Background(), executor.Request{
		System: "review",
		Messages: []executor.Message{
			{Role: executor.RoleUser, Text: "look at a.go"},
			{Role: executor.RoleAssistant, ToolCalls: []toolcall.ToolCall{{ID: "c1", Name: "glob", Args: map[string]any{"pattern": "*.go"}}}},
			{Role: executor.RoleTool, ToolResults: []toolcall.ToolResult{{ID: "c1", Name: "glob", Result: "a.go"}}},
		},
		Tools:      []toolcall.Definition{{Name: "read_file", Parameters: []toolcall.Parameter{{Name: "path", Type: "string", Required: true}}}},
		ToolChoice: "read_file",
	})
	require.NoError(t, err)

	want := &executor.Response{
		Text:         "Checking.",
		ToolCalls:    []toolcall.ToolCall{{Name: "read_file", Args: map[string]any{"path": "a.go"}}},
		Usage:        executor.Usage{InputTokens: 5, OutputTokens: 2},
		FinishReason: executor.FinishToolCalls,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response (-want +got):\n%s", diff)
	}

	contents, _ := body["contents"].([]any)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	assert.Contains(t, body, "toolConfig")
}

func TestGenerateRetriesMalformedFunctionCallOnce(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if hits.Add(1) == 1 {
			_, _ = io.WriteString(w, `{"candidates":[{"finishReason":"MALFORMED_FUNCTION_CALL"}],"usageMetadata":{"promptTokenCount":4}}`)
			return
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"LGTM"}]},"finishReason":"STOP"}],
		  "usageMetadata":{"promptTokenCount":6,"candidatesTokenCount":1}}`)
	}))
	defer srv.Close()

	resp, err := newModel(t, srv).Generate(context.Background(), executor.Request{
		Messages: []executor.Message{{Role: executor.RoleUser, Text: "hi"}},
		Tools:    []toolcall.Definition{{Name: "submit_summary"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "LGTM", resp.Text)
	assert.Equal(t, executor.Usage{InputTokens: 10, OutputTokens: 1}, resp.Usage)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGenerateConvertsAPIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`)
	}))
	defer srv.Close()

	_, err := newModel(t, srv, googleexecutor.WithRetryConfig(retry.RetryConfig{})).Generate(context.Background(), executor.Request{
		Messages: []executor.Message{{Role: executor.RoleUser, Text: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, retry.Fatal, retry.Classify(err))
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	client, err := googleexecutor.NewClient(context.Background(), googleexecutor.ClientConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	for name, opt := range map[string]googleexecutor.Option{
		"model":       googleexecutor.WithModel("claude-3"),
		"temperature": googleexecutor.WithTemperature(3),
		"tokens":      googleexecutor.WithMaxOutputTokens(0),
		"thinking":    googleexecutor.WithThinking(1 << 20),
	} {
		if _, err := googleexecutor.New(client, opt); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := googleexecutor.NewClient(context.Background(), googleexecutor.ClientConfig{}); err == nil {
		t.Error("empty config: expected error")
	}
}
