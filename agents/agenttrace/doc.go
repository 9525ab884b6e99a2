/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace provides tracing for agent sessions.

# Overview

  - ExecutionContext: review-level metadata (run, platform, repository, session kind, attempt)
  - Trace: one agent session from prompt to final text, backed by an otel span
  - ToolCall: one tool invocation within a trace, backed by a child span
  - Tracer: receives completed traces

# Usage

	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		RunID:    runID,
		Platform: "github",
		RepoID:   "octo/widgets",
		Session:  agenttrace.SessionReview,
		Attempt:  1,
	})

	trace := agenttrace.StartTrace(ctx, prompt)
	tc := trace.StartToolCall("call_1", "read_file", map[string]any{"path": "main.go"})
	tc.Complete(content, nil)
	trace.Complete(finalText, nil)
*/
package agenttrace
