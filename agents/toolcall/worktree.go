/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall/callbacks"
)

// maxReadBytes caps how much of a single file read_file returns.
const maxReadBytes = 200_000

// WorktreeTools wraps a base tools type and adds worktree callbacks.
type WorktreeTools[T any] struct {
	base T
	callbacks.WorktreeCallbacks
}

// NewWorktreeTools creates a WorktreeTools wrapping the given base tools.
func NewWorktreeTools[T any](base T, cb callbacks.WorktreeCallbacks) WorktreeTools[T] {
	return WorktreeTools[T]{base: base, WorktreeCallbacks: cb}
}

type worktreeToolsProvider[T any] struct {
	baseProvider ToolProvider[T]
}

var _ ToolProvider[WorktreeTools[EmptyTools]] = worktreeToolsProvider[EmptyTools]{}

// NewWorktreeToolsProvider creates a provider that adds the read-only
// worktree tools (read_file, list_directory, search_codebase, glob)
// on top of the base provider's tools.
func NewWorktreeToolsProvider[T any](base ToolProvider[T]) ToolProvider[WorktreeTools[T]] {
	return worktreeToolsProvider[T]{baseProvider: base}
}

func (p worktreeToolsProvider[T]) Tools(cb WorktreeTools[T]) map[string]Tool {
	tools := p.baseProvider.Tools(cb.base)

	if cb.ReadFile != nil {
		tools["read_file"] = Tool{
			Def: Definition{
				Name:        "read_file",
				Description: "Read the complete content of a file from the codebase.",
				Parameters: []Parameter{
					{Name: "path", Type: "string", Description: "The path to the file to read (relative to repository root)", Required: true},
				},
			},
			Handler: readFileHandler(cb.ReadFile),
		}
	}

	if cb.ListDirectory != nil {
		tools["list_directory"] = Tool{
			Def: Definition{
				Name:        "list_directory",
				Description: "List the contents of a directory.",
				Parameters: []Parameter{
					{Name: "path", Type: "string", Description: "The path to the directory to list (relative to repository root, use '.' for root)", Required: true},
				},
			},
			Handler: listDirectoryHandler(cb.ListDirectory),
		}
	}

	if cb.SearchCodebase != nil {
		tools["search_codebase"] = Tool{
			Def: Definition{
				Name:        "search_codebase",
				Description: "Search file contents with a regular expression. Returns matching lines with their file and line number.",
				Parameters: []Parameter{
					{Name: "pattern", Type: "string", Description: "RE2 regular expression to search for", Required: true},
				},
			},
			Handler: searchHandler(cb.SearchCodebase),
		}
	}

	if cb.Glob != nil {
		tools["glob"] = Tool{
			Def: Definition{
				Name:        "glob",
				Description: "List files whose path matches a glob pattern such as '*.go' or 'cmd/*/main.go'.",
				Parameters: []Parameter{
					{Name: "pattern", Type: "string", Description: "Glob pattern matched against repository-relative paths", Required: true},
				},
			},
			Handler: globHandler(cb.Glob),
		}
	}

	return tools
}

func readFileHandler(readFile func(context.Context, string) (string, error)) Handler {
	return func(ctx context.Context, call ToolCall) (any, error) {
		path, err := Param[string](call, "path")
		if err != nil {
			return nil, err
		}
		clog.FromContext(ctx).With("path", path).Debug("Reading file")

		content, err := readFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(content) > maxReadBytes {
			content = content[:maxReadBytes] + "\n... [truncated]"
		}
		return content, nil
	}
}

func listDirectoryHandler(list func(context.Context, string) ([]string, error)) Handler {
	return func(ctx context.Context, call ToolCall) (any, error) {
		path, err := OptionalParam(call, "path", ".")
		if err != nil {
			return nil, err
		}
		entries, err := list(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", path, err)
		}
		if len(entries) == 0 {
			return "(empty directory)", nil
		}
		return strings.Join(entries, "\n"), nil
	}
}

func searchHandler(search func(context.Context, string) ([]callbacks.Match, error)) Handler {
	return func(ctx context.Context, call ToolCall) (any, error) {
		pattern, err := Param[string](call, "pattern")
		if err != nil {
			return nil, err
		}
		matches, err := search(ctx, pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return "No matches found.", nil
		}
		var sb strings.Builder
		for _, m := range matches {
			fmt.Fprintf(&sb, "%s:%d: %s\n", m.Path, m.Line, m.Content)
		}
		return sb.String(), nil
	}
}

func globHandler(match func(context.Context, string) ([]string, error)) Handler {
	return func(ctx context.Context, call ToolCall) (any, error) {
		pattern, err := Param[string](call, "pattern")
		if err != nil {
			return nil, err
		}
		paths, err := match(ctx, pattern)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return "No files matched.", nil
		}
		return strings.Join(paths, "\n"), nil
	}
}
