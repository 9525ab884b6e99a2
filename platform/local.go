/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package platform

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/chainguard-dev/clog"
)

// Local is a Provider that writes the review to Out, or only logs it
// when Out is nil.
type Local struct {
	Out     io.Writer
	Repo    string
	Options map[string]string

	mu sync.Mutex
}

var _ Provider = (*Local)(nil)

// NewLocal returns a Local provider for repo writing to out.
func NewLocal(out io.Writer, repo string) *Local {
	return &Local{Out: out, Repo: repo}
}

// PostReviewComment implements Provider.
func (l *Local) PostReviewComment(ctx context.Context, body string) error {
	clog.FromContext(ctx).With("length", len(body)).Info("Review report ready")
	return l.printf("\n%s\n", body)
}

// PostThreadComment implements Provider.
func (l *Local) PostThreadComment(ctx context.Context, c ThreadComment) error {
	clog.FromContext(ctx).With("path", c.Path).With("line", c.Line).Info("Bug comment")
	return l.printf("\n%s:%d\n%s\n", c.Path, c.Line, c.Body)
}

// SubmitUsage implements Provider.
func (l *Local) SubmitUsage(ctx context.Context, u Usage) error {
	clog.FromContext(ctx).With("input_tokens", u.InputTokens).With("output_tokens", u.OutputTokens).Info("Review usage")
	if l.Out == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return RenderUsage(l.Out, u)
}

// Option implements Provider.
func (l *Local) Option(key string) (string, bool) {
	v, ok := l.Options[key]
	return v, ok
}

// RepoID implements Provider.
func (l *Local) RepoID() string { return l.Repo }

func (l *Local) printf(format string, args ...any) error {
	if l.Out == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.Out, format, args...)
	return err
}
