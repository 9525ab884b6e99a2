/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeexecutor adapts Anthropic's Claude models to executor.Model.
//
// The adapter translates the driver's provider-independent conversation
// into Messages API parameters, and parses tool_use blocks into
// toolcall.ToolCall values as soon as they arrive.
//
// # Basic Usage
//
//	client, err := claudeexecutor.NewClient(ctx, claudeexecutor.ClientConfig{
//	    APIKey:     os.Getenv("ANTHROPIC_API_KEY"),
//	    HTTPClient: retry.NewTransport(nil, retry.DefaultRetryConfig()).Client(),
//	})
//	if err != nil {
//	    return err
//	}
//
//	model, err := claudeexecutor.New(client,
//	    claudeexecutor.WithModel("claude-sonnet-4-5"),
//	    claudeexecutor.WithTemperature(0.1),
//	)
//
// # Vertex AI
//
// Setting ClientConfig.VertexRegion routes requests through Vertex AI with
// Google default credentials. When VertexProject is empty the project is
// discovered from the GCE metadata server.
//
// # Errors
//
// SDK errors are converted into *retry.HTTPError so the review loop can
// classify them as billing, retryable or fatal. Generate itself retries
// with the configured retry.RetryConfig; the SDK's own retries are off.
package claudeexecutor
