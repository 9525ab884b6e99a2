/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/metrics"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout applies when Params.Timeout is zero.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxTimeout caps Params.Timeout.
	DefaultMaxTimeout = 10 * time.Minute
	// DefaultOutputLimit is the captured output ceiling in bytes.
	DefaultOutputLimit = 64 << 10

	// killGrace bounds how long output is drained after the process group is killed.
	killGrace = 5 * time.Second
	// exitDrain bounds how long output is read after the shell exits
	// while a background child keeps it open.
	exitDrain = 500 * time.Millisecond
)

// Params describes one execution request.
type Params struct {
	Command    string
	Cwd        string
	Timeout    time.Duration
	Preserve   bool
	ToolCallID string
}

// Executor runs approved commands in temporary copies of a workspace.
type Executor struct {
	workspace   string
	tempDir     string
	skip        map[string]struct{}
	timeout     time.Duration
	maxTimeout  time.Duration
	outputLimit int
	metrics     *metrics.Review
}

// Option configures an Executor.
type Option func(*Executor) error

// WithTempDir sets the parent directory for sandbox copies.
func WithTempDir(dir string) Option {
	return func(e *Executor) error {
		e.tempDir = dir
		return nil
	}
}

// WithTimeouts sets the default and maximum command timeouts.
func WithTimeouts(def, limit time.Duration) Option {
	return func(e *Executor) error {
		if def <= 0 || limit < def {
			return fmt.Errorf("invalid sandbox timeouts: default %v, max %v", def, limit)
		}
		e.timeout, e.maxTimeout = def, limit
		return nil
	}
}

// WithOutputLimit sets the captured output ceiling in bytes.
func WithOutputLimit(n int) Option {
	return func(e *Executor) error {
		if n <= 0 {
			return fmt.Errorf("output limit must be positive, got %d", n)
		}
		e.outputLimit = n
		return nil
	}
}

// WithSkipDirs replaces the directory names excluded from copies.
func WithSkipDirs(names ...string) Option {
	return func(e *Executor) error {
		e.skip = make(map[string]struct{}, len(names))
		for _, n := range names {
			e.skip[n] = struct{}{}
		}
		return nil
	}
}

// WithMetrics records run outcomes on m.
func WithMetrics(m *metrics.Review) Option {
	return func(e *Executor) error {
		e.metrics = m
		return nil
	}
}

// New creates an Executor for the workspace directory.
func New(workspace string, opts ...Option) (*Executor, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", abs)
	}

	e := &Executor{
		workspace:   abs,
		timeout:     DefaultTimeout,
		maxTimeout:  DefaultMaxTimeout,
		outputLimit: DefaultOutputLimit,
	}
	if err := WithSkipDirs(DefaultSkipDirs...)(e); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Workspace is the directory sandboxes are copied from.
func (e *Executor) Workspace() string { return e.workspace }

// Execute runs p.Command after confirm approves it. The returned Run is
// never nil. The error is non-nil for deny-listed commands
// (ErrDangerousCommand), denials (ErrDenied), failures to set up or start
// the sandbox, and cancellation of ctx; a non-zero exit is not an error.
func (e *Executor) Execute(ctx context.Context, p Params, confirm Confirmer, onEvent func(Event)) (*Run, error) {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	if confirm == nil {
		confirm = DenyAll
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	timeout = min(timeout, e.maxTimeout)

	run := &Run{
		ID:         uuid.NewString(),
		ToolCallID: p.ToolCallID,
		Command:    p.Command,
		Cwd:        p.Cwd,
		Timeout:    timeout,
		Preserve:   p.Preserve,
		Approval:   ApprovalPending,
		Status:     StatusRunning,
		ExitCode:   -1,
	}
	log := clog.FromContext(ctx).With("sandbox_run", run.ID)
	defer func() { e.record(ctx, run) }()

	if strings.TrimSpace(p.Command) == "" {
		run.Status, run.Reason = StatusError, "command is empty"
		return run, errors.New("command is empty")
	}
	if rule, bad := Dangerous(p.Command); bad {
		log.Warnf("Refusing dangerous command (%s): %s", rule, p.Command)
		run.Status, run.Reason = StatusDangerous, "matched "+rule
		return run, fmt.Errorf("%w: matched %s", ErrDangerousCommand, rule)
	}

	decision, err := confirm.Confirm(ctx, Request{
		RunID:      run.ID,
		ToolCallID: p.ToolCallID,
		Command:    p.Command,
		Cwd:        p.Cwd,
		Timeout:    timeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			run.Approval, run.Status, run.Reason = ApprovalDenied, StatusDenied, "canceled"
			return run, context.Cause(ctx)
		}
		decision = Decision{Reason: fmt.Sprintf("approval failed: %v", err)}
	}
	if !decision.Approved {
		reason := decision.Reason
		if reason == "" {
			reason = "not approved"
		}
		log.Infof("Sandbox run denied: %s", reason)
		run.Approval, run.Status, run.Reason = ApprovalDenied, StatusDenied, reason
		return run, fmt.Errorf("%w: %s", ErrDenied, reason)
	}
	run.Approval = ApprovalApproved

	root, err := os.MkdirTemp(e.tempDir, "sandbox-")
	if err != nil {
		run.Status, run.Reason = StatusError, err.Error()
		return run, fmt.Errorf("creating sandbox: %w", err)
	}
	run.Root = root
	defer func() {
		if p.Preserve {
			log.Infof("Preserving sandbox at %s", root)
			return
		}
		if err := os.RemoveAll(root); err != nil {
			log.Warnf("Failed to remove sandbox %s: %v", root, err)
		}
	}()

	if err := copyTree(e.workspace, root, e.skip); err != nil {
		run.Status, run.Reason = StatusError, err.Error()
		return run, fmt.Errorf("copying workspace: %w", err)
	}

	dir, rel, note := resolveDir(e.workspace, root, p.Cwd)
	run.Dir = rel

	onEvent(Event{Kind: EventStart, RunID: run.ID, ToolCallID: run.ToolCallID, Command: run.Command, Cwd: rel, Root: root})
	if note != "" {
		run.append(Chunk{Stream: StreamSystem, Text: note + "\n"}, e.outputLimit, onEvent)
	}

	err = e.run(ctx, run, dir, onEvent)
	onEvent(Event{
		Kind:       EventEnd,
		RunID:      run.ID,
		ToolCallID: run.ToolCallID,
		Status:     run.Status,
		ExitCode:   run.ExitCode,
		Signal:     run.Signal,
		Duration:   run.Duration,
		Truncated:  run.Truncated,
	})
	log.With("status", run.Status).Infof("Sandbox run finished in %v", run.Duration)
	return run, err
}

func (e *Executor) run(ctx context.Context, run *Run, dir string, onEvent func(Event)) error {
	cmd := exec.Command("sh", "-c", run.Command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "SANDBOX_ROOT="+run.Root, "CI=true")
	setProcessGroup(cmd)

	// Plain pipes rather than StdoutPipe: Wait must not close the read
	// ends while a background child still writes to them.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		run.Status, run.Reason = StatusError, err.Error()
		return err
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		run.Status, run.Reason = StatusError, err.Error()
		return err
	}
	defer stdoutR.Close()
	defer stderrR.Close()
	cmd.Stdout, cmd.Stderr = stdoutW, stderrW

	start := time.Now()
	err = cmd.Start()
	stdoutW.Close()
	stderrW.Close()
	if err != nil {
		run.Status, run.Reason = StatusError, err.Error()
		return fmt.Errorf("starting command: %w", err)
	}

	chunks := make(chan Chunk)
	var readers sync.WaitGroup
	readers.Add(2)
	go pump(stdoutR, StreamStdout, chunks, &readers)
	go pump(stderrR, StreamStderr, chunks, &readers)
	go func() {
		readers.Wait()
		close(chunks)
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timer := time.NewTimer(run.Timeout)
	defer timer.Stop()
	timeout, done := timer.C, ctx.Done()
	var drain <-chan time.Time
	var waitErr error
	exited, output, timedOut, canceled := false, chunks, false, false

loop:
	for {
		select {
		case c, ok := <-output:
			if !ok {
				output = nil
				if exited {
					break loop
				}
				continue
			}
			run.append(c, e.outputLimit, onEvent)
		case waitErr = <-waitCh:
			exited, waitCh, timeout = true, nil, nil
			run.Duration = time.Since(start)
			if output == nil {
				break loop
			}
			// A background child may still hold the output open.
			if drain == nil {
				drain = time.After(exitDrain)
			}
		case <-timeout:
			timedOut, timeout = true, nil
			killProcessGroup(cmd)
			drain = time.After(killGrace)
		case <-done:
			canceled, done = true, nil
			killProcessGroup(cmd)
			drain = time.After(killGrace)
		case <-drain:
			break loop
		}
	}

	// Reap whatever the command left running and unblock the readers.
	killProcessGroup(cmd)
	stdoutR.Close()
	stderrR.Close()
	go func() {
		for range chunks {
		}
	}()
	if !exited {
		waitErr = <-waitCh
		run.Duration = time.Since(start)
	}
	if cmd.ProcessState != nil {
		run.ExitCode = cmd.ProcessState.ExitCode()
		run.Signal = exitSignal(cmd.ProcessState)
	}

	var exitErr *exec.ExitError
	switch {
	case canceled:
		run.Status, run.Reason = StatusError, "canceled"
		return context.Cause(ctx)
	case timedOut:
		run.Status = StatusTimedOut
	case waitErr == nil:
		run.Status = StatusSuccess
	case errors.As(waitErr, &exitErr):
		run.Status = StatusNonzero
	default:
		run.Status, run.Reason = StatusError, waitErr.Error()
		return fmt.Errorf("waiting for command: %w", waitErr)
	}
	return nil
}

func pump(r io.Reader, stream Stream, out chan<- Chunk, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out <- Chunk{Stream: stream, Text: string(buf[:n])}
		}
		if err != nil {
			return
		}
	}
}

// append adds a chunk within the output ceiling and reports it.
func (r *Run) append(c Chunk, limit int, onEvent func(Event)) {
	if r.Truncated {
		return
	}
	if r.size+len(c.Text) > limit {
		c.Text = c.Text[:limit-r.size]
		r.Truncated = true
	}
	if c.Text != "" {
		r.size += len(c.Text)
		r.Chunks = append(r.Chunks, c)
		onEvent(Event{Kind: EventOutput, RunID: r.ID, ToolCallID: r.ToolCallID, Chunk: c})
	}
	if r.Truncated {
		note := Chunk{Stream: StreamSystem, Text: fmt.Sprintf("\n[output truncated at %d bytes]\n", limit)}
		r.Chunks = append(r.Chunks, note)
		onEvent(Event{Kind: EventOutput, RunID: r.ID, ToolCallID: r.ToolCallID, Chunk: note})
	}
}

func (e *Executor) record(ctx context.Context, run *Run) {
	if e.metrics != nil {
		e.metrics.RecordSandboxRun(ctx, string(run.Status))
	}
}
