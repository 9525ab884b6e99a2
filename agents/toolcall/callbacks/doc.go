/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package callbacks provides lightweight callback types for the read-only
workspace tools.

This package has no AI SDK dependencies, so platform packages can supply
callback implementations without importing anthropic-sdk-go or genai.

# Worktree Callbacks

WorktreeCallbacks provides file operations on the workspace under review:

	cb := callbacks.ForDirectory("/path/to/checkout")
	content, err := cb.ReadFile(ctx, "main.go")

ForDirectory refuses any path that escapes the root.
*/
package callbacks
