/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall/callbacks"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func worktreeRegistry(t *testing.T, root string) *toolcall.Registry {
	t.Helper()
	provider := toolcall.NewWorktreeToolsProvider(toolcall.NewEmptyToolsProvider())
	reg, err := toolcall.FromMap(provider.Tools(toolcall.NewWorktreeTools(toolcall.EmptyTools{}, callbacks.ForDirectory(root))))
	if err != nil {
		t.Fatalf("FromMap() = %v", err)
	}
	return reg
}

func call(t *testing.T, reg *toolcall.Registry, name string, args map[string]any) (string, error) {
	t.Helper()
	tool, ok := reg.Lookup(name)
	if !ok {
		t.Fatalf("tool %q not registered", name)
	}
	out, err := tool.Handler(context.Background(), toolcall.ToolCall{ID: "1", Name: name, Args: args})
	return toolcall.ResultText(out), err
}

func TestWorktreeTools(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() { panic(\"todo\") }\n")
	writeFile(t, root, "pkg/util.go", "package pkg\n")
	writeFile(t, root, ".git/config", "panic in hidden dir\n")

	reg := worktreeRegistry(t, root)
	if diff := cmp.Diff([]string{"glob", "list_directory", "read_file", "search_codebase"}, reg.Names()); diff != "" {
		t.Fatalf("tool names mismatch (-want +got):\n%s", diff)
	}

	got, err := call(t, reg, "read_file", map[string]any{"path": "pkg/util.go"})
	if err != nil || got != "package pkg\n" {
		t.Errorf("read_file = %q, %v", got, err)
	}

	if _, err := call(t, reg, "read_file", map[string]any{"path": "../../etc/passwd"}); err == nil {
		t.Error("read_file outside the workspace should fail")
	}

	got, err = call(t, reg, "search_codebase", map[string]any{"pattern": `panic\(`})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "main.go:3:") || strings.Contains(got, ".git") {
		t.Errorf("search_codebase = %q", got)
	}

	got, err = call(t, reg, "glob", map[string]any{"pattern": "*.go"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("main.go\npkg/util.go", got); diff != "" {
		t.Errorf("glob mismatch (-want +got):\n%s", diff)
	}

	got, err = call(t, reg, "ListDirectory", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "pkg/") || !strings.Contains(got, "main.go") {
		t.Errorf("list_directory = %q", got)
	}
}
