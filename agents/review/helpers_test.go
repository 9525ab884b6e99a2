/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review_test

import (
	"context"
	"sync"
	"testing"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/review"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/stream"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	mu      sync.Mutex
	reviews []string
	threads []platform.ThreadComment
	usage   []platform.Usage
}

var _ platform.Provider = (*recordingProvider)(nil)

func (p *recordingProvider) PostReviewComment(_ context.Context, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reviews = append(p.reviews, body)
	return nil
}

func (p *recordingProvider) PostThreadComment(_ context.Context, c platform.ThreadComment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append(p.threads, c)
	return nil
}

func (p *recordingProvider) SubmitUsage(_ context.Context, u platform.Usage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage = append(p.usage, u)
	return nil
}

func (p *recordingProvider) Option(string) (string, bool) { return "", false }
func (p *recordingProvider) RepoID() string               { return "octo/widgets" }

var changedFiles = []platform.File{{
	Name:    "main.go",
	Content: "package main\n\nfunc main() {}\n",
	Diff:    "@@ -0,0 +1,3 @@\n+package main\n+\n+func main() {}\n",
	Status:  "added",
}}

func newOrchestrator(t *testing.T, model executor.Model, opts ...review.Option) *review.Orchestrator {
	t.Helper()
	o, err := review.New(model, toolcall.MustRegistry(), opts...)
	require.NoError(t, err)
	return o
}

// withoutStatus drops status events, which carry prose only.
func withoutStatus(types []stream.Type) []stream.Type {
	var out []stream.Type
	for _, t := range types {
		if t != stream.TypeStatus {
			out = append(out, t)
		}
	}
	return out
}

func lastEvent(rec *stream.Recorder) stream.Event {
	events := rec.Events()
	return events[len(events)-1]
}

var approveAll = sandbox.ConfirmFunc(func(context.Context, sandbox.Request) (sandbox.Decision, error) {
	return sandbox.Decision{Approved: true}, nil
})
