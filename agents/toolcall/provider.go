/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

// ToolProvider defines tools for an agent.
// Compose providers by wrapping: Empty -> Worktree.
// Conversion to SDK-specific types happens in the executor adapters.
type ToolProvider[CB any] interface {
	// Tools returns unified tool definitions that work with any provider.
	Tools(cb CB) map[string]Tool
}
