/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package review runs a complete code review.
//
// An Orchestrator drives the main review session through a bounded
// attempt loop. Each attempt runs one executor session whose tools are
// the caller's base tools plus submit_summary, sandbox_exec, record_bug
// and, optionally, spawn_subagent. An attempt succeeds only when the
// model calls submit_summary; otherwise the next attempt's prompt grows
// with what the previous one did.
//
//	orch, err := review.New(model, tools, review.WithSandbox(sb))
//	out, err := orch.Run(ctx, review.Request{Files: files, Platform: p, Emitter: w})
//
// Two paths guarantee a report even when the model misbehaves. A session
// that keeps running the same sandbox command is cancelled and replaced
// by a Recovery Summary, a single tool-less call seeded with the latest
// sandbox evidence and the changed files. A final text that only talks
// about waiting for approval is rejected the same way.
//
// After the report is known, the bug-verification pass turns bug
// statements in it into bug cards, running at most one sandbox command
// per candidate to verify each.
package review
