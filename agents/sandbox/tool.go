/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sandbox

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// ToolName is the name of the sandbox tool.
const ToolName = "sandbox_exec"

// DuplicateRefusal is returned by a SingleUse tool after its first call.
const DuplicateRefusal = "Duplicate sandbox_exec call prevented: only one verification command may run in this session. " +
	"Do not retry. Record the bug now using the evidence you already have."

// ToolConfig wires a sandbox_exec tool to its surroundings.
type ToolConfig struct {
	Confirmer Confirmer
	OnEvent   func(Event)
	// OnRun observes every finished run, including refused ones.
	OnRun func(context.Context, *Run)
}

// NewTool exposes e as the sandbox_exec tool.
func NewTool(e *Executor, cfg ToolConfig) toolcall.Tool {
	return toolcall.Tool{
		Def: toolcall.Definition{
			Name: ToolName,
			Description: "Run a shell command in a disposable copy of the repository to verify a suspected bug. " +
				"A human must approve each command. Prefer one short, targeted command such as a focused test or a small script. " +
				"A non-zero exit code is valid evidence.",
			Parameters: []toolcall.Parameter{
				{Name: "command", Type: "string", Description: "Shell command, run with sh -c", Required: true},
				{Name: "cwd", Type: "string", Description: "Working directory relative to the repository root (default '.')"},
				{Name: "timeout", Type: "integer", Description: "Timeout in milliseconds (default 30000)"},
				{Name: "preserve_sandbox", Type: "boolean", Description: "Keep the sandbox directory after the run for inspection"},
			},
		},
		Handler: func(ctx context.Context, call toolcall.ToolCall) (any, error) {
			command, err := toolcall.Param[string](call, "command")
			if err != nil {
				return nil, err
			}
			cwd, err := toolcall.OptionalParam(call, "cwd", ".")
			if err != nil {
				return nil, err
			}
			timeoutMS, err := toolcall.OptionalParam(call, "timeout", 0)
			if err != nil {
				return nil, err
			}
			preserve, err := toolcall.OptionalParam(call, "preserve_sandbox", false)
			if err != nil {
				return nil, err
			}

			run, err := e.Execute(ctx, Params{
				Command:    command,
				Cwd:        cwd,
				Timeout:    time.Duration(timeoutMS) * time.Millisecond,
				Preserve:   preserve,
				ToolCallID: call.ID,
			}, cfg.Confirmer, cfg.OnEvent)
			if cfg.OnRun != nil {
				cfg.OnRun(ctx, run)
			}
			switch {
			case errors.Is(err, ErrDangerousCommand), errors.Is(err, ErrDenied):
				return run.String(), nil
			case err != nil:
				return nil, err
			}
			return run, nil
		},
	}
}

// SingleUse lets the first call through and answers every later call
// with DuplicateRefusal, whatever its arguments.
func SingleUse(t toolcall.Tool) toolcall.Tool {
	var used atomic.Bool
	next := t.Handler
	t.Handler = func(ctx context.Context, call toolcall.ToolCall) (any, error) {
		if !used.CompareAndSwap(false, true) {
			return DuplicateRefusal, nil
		}
		return next(ctx, call)
	}
	return t
}

// Signature identifies a sandbox_exec call by what it would run.
type Signature struct {
	Cwd     string
	Timeout int
	Command string
}

// SignatureOf extracts the signature of a sandbox_exec call. Missing
// arguments take their defaults so equivalent calls compare equal.
func SignatureOf(call toolcall.ToolCall) Signature {
	cwd, _ := toolcall.OptionalParam(call, "cwd", ".")
	if cwd == "" {
		cwd = "."
	}
	timeout, _ := toolcall.OptionalParam(call, "timeout", 0)
	command, _ := toolcall.OptionalParam(call, "command", "")
	return Signature{Cwd: cwd, Timeout: timeout, Command: command}
}
