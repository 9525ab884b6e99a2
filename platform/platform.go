/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package platform

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Kind names a source of changed files.
type Kind string

const (
	KindLocal  Kind = "local"
	KindGitHub Kind = "github"
)

// ParseKind accepts the names used on the command line and in requests.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindLocal, KindGitHub:
		return k, nil
	case "":
		return KindLocal, nil
	case "gh", "pr":
		return KindGitHub, nil
	}
	return "", fmt.Errorf("unknown platform %q (want local or github)", s)
}

// File is one changed file.
type File struct {
	Name    string `json:"fileName"`
	Content string `json:"fileContent"`
	// Diff is the unified diff of the change, when known.
	Diff      string `json:"diff,omitempty"`
	Status    string `json:"status,omitempty"`
	Additions int    `json:"additions,omitempty"`
	Deletions int    `json:"deletions,omitempty"`
	Hunks     []Hunk `json:"hunks,omitempty"`
}

// Hunk locates one changed region.
type Hunk struct {
	OldStart int    `json:"oldStart"`
	OldLines int    `json:"oldLines"`
	NewStart int    `json:"newStart"`
	NewLines int    `json:"newLines"`
	Header   string `json:"header,omitempty"`
}

// Names returns the file names in order.
func Names(files []File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

// ChangedFilesProvider produces the files a review looks at.
type ChangedFilesProvider interface {
	ChangedFiles(ctx context.Context) ([]File, error)
}

// ChangedFilesFunc adapts a function to ChangedFilesProvider.
type ChangedFilesFunc func(ctx context.Context) ([]File, error)

// ChangedFiles implements ChangedFilesProvider.
func (f ChangedFilesFunc) ChangedFiles(ctx context.Context) ([]File, error) { return f(ctx) }

// ChangedFiles asks the provider registered for kind.
func ChangedFiles(ctx context.Context, kind Kind, providers map[Kind]ChangedFilesProvider) ([]File, error) {
	p, ok := providers[kind]
	if !ok || p == nil {
		known := make([]string, 0, len(providers))
		for k := range providers {
			known = append(known, string(k))
		}
		slices.Sort(known)
		return nil, fmt.Errorf("no changed-files provider for %q (have %s)", kind, strings.Join(known, ", "))
	}
	files, err := p.ChangedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing %s changes: %w", kind, err)
	}
	return files, nil
}

// ThreadComment is a comment anchored to a line of a changed file.
type ThreadComment struct {
	Path string
	Line int
	Body string
}

// Usage is what a review consumed.
type Usage struct {
	InputTokens  int64          `json:"inputTokens"`
	OutputTokens int64          `json:"outputTokens"`
	Tools        map[string]int `json:"tools,omitempty"`
}

// TotalTokens is input plus output tokens.
func (u Usage) TotalTokens() int64 { return u.InputTokens + u.OutputTokens }

// Provider is the delivery side of a platform.
type Provider interface {
	PostReviewComment(ctx context.Context, body string) error
	PostThreadComment(ctx context.Context, c ThreadComment) error
	SubmitUsage(ctx context.Context, u Usage) error
	// Option returns a platform-specific setting.
	Option(key string) (string, bool)
	// RepoID identifies the repository, e.g. "octo/widgets".
	RepoID() string
}
