/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"github.com/chainguard-dev/clog"
)

// NewDefaultTracer creates a tracer that logs completed traces to clog.
func NewDefaultTracer(ctx context.Context) Tracer {
	logger := clog.FromContext(ctx)

	return ByCode(func(trace *Trace) {
		log := logger.With(
			"trace_id", trace.ID,
			"session", trace.ExecContext.Session,
			"duration_ms", trace.Duration().Milliseconds(),
			"tool_calls", len(trace.ToolCalls),
			"input_tokens", trace.InputTokens,
			"output_tokens", trace.OutputTokens,
		)
		if trace.Error != nil {
			log.Warn("Agent trace failed", "error", trace.Error)
			return
		}
		log.Debug("Agent trace completed", "trace", trace.String())
	})
}
