/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sandbox

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Request is what a Confirmer is asked to approve.
type Request struct {
	RunID      string        `json:"runId"`
	ToolCallID string        `json:"toolCallId,omitempty"`
	Command    string        `json:"command"`
	Cwd        string        `json:"cwd"`
	Timeout    time.Duration `json:"timeout"`
}

// Decision is a Confirmer's answer.
type Decision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// Confirmer approves or denies sandbox runs.
type Confirmer interface {
	Confirm(ctx context.Context, req Request) (Decision, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, req Request) (Decision, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}

// DenyAll is the Confirmer for contexts where nobody can be asked.
var DenyAll Confirmer = ConfirmFunc(func(context.Context, Request) (Decision, error) {
	return Decision{Reason: "sandbox execution requires interactive approval and none is available in this context"}, nil
})

// TerminalConfirmer asks on a terminal. It denies when In is a file
// that is not a TTY.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer

	mu    sync.Mutex
	once  sync.Once
	lines chan answer
}

type answer struct {
	line string
	err  error
}

// NewTerminalConfirmer asks on the process's stdin and stderr.
func NewTerminalConfirmer() *TerminalConfirmer {
	return &TerminalConfirmer{In: os.Stdin, Out: os.Stderr}
}

// readLines is the only reader of In. It outlives any one Confirm, so a
// prompt abandoned on cancellation leaves no reader behind.
func (t *TerminalConfirmer) readLines() {
	defer close(t.lines)
	r := bufio.NewReader(t.In)
	for {
		line, err := r.ReadString('\n')
		if line != "" || err != nil {
			t.lines <- answer{line, err}
		}
		if err != nil {
			return
		}
	}
}

// Confirm implements Confirmer.
func (t *TerminalConfirmer) Confirm(ctx context.Context, req Request) (Decision, error) {
	if t.In == nil {
		return Decision{Reason: "no input to ask for approval on"}, nil
	}
	if f, ok := t.In.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return Decision{Reason: "stdin is not a terminal; cannot ask for approval"}, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.once.Do(func() {
		t.lines = make(chan answer)
		go t.readLines()
	})

	fmt.Fprintf(t.Out, "\nThe agent wants to run a command in a sandbox copy of the workspace:\n")
	fmt.Fprintf(t.Out, "  command: %s\n  cwd:     %s\n  timeout: %s\n", req.Command, req.Cwd, req.Timeout)
	fmt.Fprintf(t.Out, "Approve? [y/N] ")

	select {
	case <-ctx.Done():
		return Decision{}, context.Cause(ctx)
	case a, ok := <-t.lines:
		if !ok {
			return Decision{Reason: "input closed; cannot ask for approval"}, nil
		}
		if a.err != nil && a.line == "" {
			return Decision{Reason: fmt.Sprintf("reading approval: %v", a.err)}, nil
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return Decision{Approved: true}, nil
		}
		return Decision{Reason: "denied by user"}, nil
	}
}
