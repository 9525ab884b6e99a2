/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sandbox runs shell commands against a throwaway copy of a
// workspace after a human approves them.
//
// Every execution follows the same path:
//
//  1. Commands matching the deny-list are refused outright, before any
//     approval round trip and before anything touches the filesystem.
//  2. The Confirmer decides. Non-interactive contexts use DenyAll.
//  3. The workspace is copied (without .git and dependency directories)
//     into a fresh temporary directory and the command runs there under
//     `sh -c` in its own process group, with output streamed as Events.
//  4. The temporary directory is removed on every exit path unless the
//     caller asked to preserve it.
//
// A non-zero exit is a normal outcome (StatusNonzero): when verifying a
// bug, a failing command is usually the evidence.
//
// NewTool exposes an Executor as the sandbox_exec tool, and SingleUse
// limits such a tool to one execution per session.
package sandbox
