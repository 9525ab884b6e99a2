/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sandbox_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalConfirmerAfterCancel(t *testing.T) {
	t.Parallel()

	in, w := io.Pipe()
	defer w.Close()
	c := &sandbox.TerminalConfirmer{In: in, Out: io.Discard}
	req := sandbox.Request{Command: "go test ./...", Cwd: ".", Timeout: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Confirm(ctx, req)
	require.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	type result struct {
		d   sandbox.Decision
		err error
	}
	got := make(chan result, 1)
	go func() {
		d, err := c.Confirm(ctx, req)
		got <- result{d, err}
	}()

	_, err = io.WriteString(w, "y\n")
	require.NoError(t, err)
	r := <-got
	require.NoError(t, r.err, "the answer went to the abandoned prompt")
	assert.True(t, r.d.Approved)
}

func TestTerminalConfirmerAnswers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		approved bool
		reason   string
	}{
		{input: "yes\n", approved: true},
		{input: "n\n", reason: "denied by user"},
		{input: "\n", reason: "denied by user"},
		{input: "", reason: "reading approval: EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			in, w := io.Pipe()
			go func() {
				_, _ = io.WriteString(w, tt.input)
				w.Close()
			}()
			c := &sandbox.TerminalConfirmer{In: in, Out: io.Discard}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			d, err := c.Confirm(ctx, sandbox.Request{Command: "ls"})
			require.NoError(t, err)
			assert.Equal(t, tt.approved, d.Approved)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}
