/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Session kinds recorded on traces and metrics.
const (
	SessionReview   = "review"
	SessionSubAgent = "subagent"
	SessionBugPass  = "bugpass"
	SessionRecovery = "recovery"
)

// ExecutionContext carries review-level metadata for trace and metric enrichment.
type ExecutionContext struct {
	RunID    string `json:"run_id,omitempty"`   // unique per review run
	Platform string `json:"platform,omitempty"` // "local" or "github"
	RepoID   string `json:"repo_id,omitempty"`  // e.g. "octo/widgets"
	Session  string `json:"session,omitempty"`  // one of the Session* constants
	Attempt  int    `json:"attempt,omitempty"`  // 1-based attempt of the review loop
}

// EnrichAttributes adds the bounded execution context attributes to baseAttrs.
//
// RunID is deliberately left out: every run would create a new time series.
func (e ExecutionContext) EnrichAttributes(baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(baseAttrs), len(baseAttrs)+4)
	copy(attrs, baseAttrs)

	if e.Platform != "" {
		attrs = append(attrs, attribute.String("platform", e.Platform))
	}
	if e.RepoID != "" {
		attrs = append(attrs, attribute.String("repository", e.RepoID))
	}
	if e.Session != "" {
		attrs = append(attrs, attribute.String("session", e.Session))
	}
	attrs = append(attrs, attribute.Int("attempt", e.Attempt))
	return attrs
}

type contextKey string

const executionContextKey contextKey = "execution_context"

// WithExecutionContext adds execution context to the Go context
func WithExecutionContext(ctx context.Context, execCtx ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey, execCtx)
}

// GetExecutionContext retrieves execution context from the Go context
func GetExecutionContext(ctx context.Context) ExecutionContext {
	if execCtx, ok := ctx.Value(executionContextKey).(ExecutionContext); ok {
		return execCtx
	}
	return ExecutionContext{}
}

// WithSession returns ctx with the session kind (and attempt, when > 0) replaced.
func WithSession(ctx context.Context, session string, attempt int) context.Context {
	execCtx := GetExecutionContext(ctx)
	execCtx.Session = session
	if attempt > 0 {
		execCtx.Attempt = attempt
	}
	return WithExecutionContext(ctx, execCtx)
}
