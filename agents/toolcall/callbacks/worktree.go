/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package callbacks

import "context"

// Match is one line of a content search.
type Match struct {
	Path    string `json:"path"` // workspace relative
	Line    int    `json:"line"` // 1-based
	Content string `json:"content"`
}

// WorktreeCallbacks is the read-only view of the workspace under review
// that the review tools are built on. Paths are workspace relative. A nil
// callback leaves its tool out.
type WorktreeCallbacks struct {
	ReadFile func(ctx context.Context, path string) (string, error)
	// ListDirectory marks subdirectories with a trailing "/".
	ListDirectory  func(ctx context.Context, path string) ([]string, error)
	SearchCodebase func(ctx context.Context, pattern string) ([]Match, error)
	Glob           func(ctx context.Context, pattern string) ([]string, error)
}
