/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package subagent spawns focused agent sessions that report back to the
// main review.
//
// A Spawner runs one executor session per goal with a narrowed tool set
// and the submit_report finishing tool:
//
//	s, err := subagent.New(model, baseTools)
//	report, err := s.Spawn(ctx, "[Security Analysis Agent] Check the new auth handler")
//
// Goals prefixed with one of the PreflightRoles run read-only (no shell,
// sandbox or MCP tools) and their reports must pass a quality gate; a
// report that fails gets exactly one forced rewrite. When a session ends
// without calling submit_report the Spawner falls back to the model's
// free text, then to a forced single-step submit_report call over the
// evidence gathered so far, and finally to a canned report.
//
// Reports are cached by goal, and by the goal's bracketed role prefix, so
// a re-prompted review that reissues a similar goal does not pay for a
// second session. RunGoals runs several goals on a small worker pool.
package subagent
