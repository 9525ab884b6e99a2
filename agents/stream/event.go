/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package stream

import (
	"time"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
)

// Type discriminates events.
type Type string

const (
	TypeStatus            Type = "status"
	TypeFiles             Type = "files"
	TypeStep              Type = "step"
	TypeSandboxRequest    Type = "sandbox_request"
	TypeSandboxRunStart   Type = "sandbox_run_start"
	TypeSandboxRunOutput  Type = "sandbox_run_output"
	TypeSandboxRunEnd     Type = "sandbox_run_end"
	TypeSubagentPreflight Type = "subagent_preflight"
	TypeComplete          Type = "complete"
	TypeError             Type = "error"
	TypePing              Type = "ping"
)

// Event is one message of the stream. Only the fields relevant to Type
// are set.
type Event struct {
	Type Type `json:"type"`

	// status, error
	Message string `json:"message,omitempty"`

	// files
	Files []string `json:"files,omitempty"`

	// step
	Step *executor.Step `json:"step,omitempty"`

	// sandbox_request
	RequestID string `json:"requestId,omitempty"`
	Timeout   int64  `json:"timeout,omitempty"`

	// sandbox_request, sandbox_run_*
	ToolCallID string `json:"toolCallId,omitempty"`
	Command    string `json:"command,omitempty"`
	Cwd        string `json:"cwd,omitempty"`
	RunID      string `json:"runId,omitempty"`
	Stream     string `json:"stream,omitempty"`
	Chunk      string `json:"chunk,omitempty"`
	Status     string `json:"status,omitempty"`
	ExitCode   *int   `json:"exitCode,omitempty"`
	Signal     string `json:"signal,omitempty"`
	DurationMS int64  `json:"durationMs,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`

	// subagent_preflight
	State string `json:"state,omitempty"`
	Total int    `json:"total,omitempty"`

	// complete
	Result string `json:"result,omitempty"`
	Bugs   any    `json:"bugs,omitempty"`
	Usage  any    `json:"usage,omitempty"`

	// ping
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Status reports progress in prose.
func Status(message string) Event {
	return Event{Type: TypeStatus, Message: message}
}

// Files lists the files under review.
func Files(names []string) Event {
	return Event{Type: TypeFiles, Files: names}
}

// StepEvent reports one completed driver step.
func StepEvent(step executor.Step) Event {
	return Event{Type: TypeStep, Step: &step}
}

// SandboxRequest asks the observer to approve a sandbox run.
func SandboxRequest(requestID string, req sandbox.Request) Event {
	return Event{
		Type:       TypeSandboxRequest,
		RequestID:  requestID,
		ToolCallID: req.ToolCallID,
		Command:    req.Command,
		Cwd:        req.Cwd,
		Timeout:    req.Timeout.Milliseconds(),
	}
}

// SandboxRun converts a sandbox progress event.
func SandboxRun(ev sandbox.Event) Event {
	out := Event{RunID: ev.RunID, ToolCallID: ev.ToolCallID}
	switch ev.Kind {
	case sandbox.EventStart:
		out.Type = TypeSandboxRunStart
		out.Command = ev.Command
		out.Cwd = ev.Cwd
	case sandbox.EventOutput:
		out.Type = TypeSandboxRunOutput
		out.Stream = string(ev.Chunk.Stream)
		out.Chunk = ev.Chunk.Text
	default:
		code := ev.ExitCode
		out.Type = TypeSandboxRunEnd
		out.Status = string(ev.Status)
		out.ExitCode = &code
		out.Signal = ev.Signal
		out.DurationMS = ev.Duration.Milliseconds()
		out.Truncated = ev.Truncated
	}
	return out
}

// Preflight marks the start or end of sub-agent preflight.
func Preflight(state string, total int) Event {
	return Event{Type: TypeSubagentPreflight, State: state, Total: total}
}

// Complete is the terminal success event.
func Complete(result string, bugs, usage any) Event {
	return Event{Type: TypeComplete, Result: result, Bugs: bugs, Usage: usage}
}

// Error is the terminal failure event.
func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

// Ping is the heartbeat event.
func Ping(t time.Time) Event {
	return Event{Type: TypePing, Timestamp: t.UnixMilli()}
}
