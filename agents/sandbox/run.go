/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sandbox

import (
	"fmt"
	"strings"
	"time"
)

// Stream tags the origin of an output chunk.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
	StreamSystem Stream = "system"
)

// Status is the lifecycle state of a Run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusNonzero   Status = "nonzero"
	StatusTimedOut  Status = "timed_out"
	StatusDenied    Status = "denied"
	StatusDangerous Status = "dangerous"
	StatusError     Status = "error"
)

// Approval is the approval state of a Run.
type Approval string

const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalDenied   Approval = "denied"
)

// Chunk is a piece of output from one stream.
type Chunk struct {
	Stream Stream `json:"stream"`
	Text   string `json:"text"`
}

// Run records one sandbox execution. It is owned by the Executor until
// Execute returns.
type Run struct {
	ID         string        `json:"runId"`
	ToolCallID string        `json:"toolCallId,omitempty"`
	Command    string        `json:"command"`
	Cwd        string        `json:"cwd"`
	Dir        string        `json:"dir,omitempty"`
	Timeout    time.Duration `json:"timeout"`
	Preserve   bool          `json:"preserve,omitempty"`
	Approval   Approval      `json:"approval"`
	Status     Status        `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	Chunks     []Chunk       `json:"chunks,omitempty"`
	ExitCode   int           `json:"exitCode"`
	Signal     string        `json:"signal,omitempty"`
	Duration   time.Duration `json:"duration"`
	Root       string        `json:"root,omitempty"`
	Truncated  bool          `json:"truncated,omitempty"`

	size int
}

// Output returns the captured output of all streams in arrival order.
func (r *Run) Output() string {
	var sb strings.Builder
	for _, c := range r.Chunks {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// String renders the run as tool output for the model.
func (r *Run) String() string {
	switch r.Status {
	case StatusDangerous:
		return fmt.Sprintf("Potentially dangerous command detected (%s). The command was not executed.", r.Reason)
	case StatusDenied:
		return "Sandbox execution denied: " + r.Reason
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "$ %s\n", r.Command)
	if r.Dir != "" && r.Dir != "." {
		fmt.Fprintf(&sb, "(cwd: %s)\n", r.Dir)
	}
	out := r.Output()
	sb.WriteString(out)
	if out != "" && !strings.HasSuffix(out, "\n") {
		sb.WriteByte('\n')
	}

	switch r.Status {
	case StatusSuccess:
		fmt.Fprintf(&sb, "[exit code 0 in %s]", r.Duration.Round(time.Millisecond))
	case StatusNonzero:
		if r.Signal != "" {
			fmt.Fprintf(&sb, "[terminated by signal %s in %s]", r.Signal, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(&sb, "[exit code %d in %s]", r.ExitCode, r.Duration.Round(time.Millisecond))
		}
	case StatusTimedOut:
		fmt.Fprintf(&sb, "[timed out after %s]", r.Timeout)
	case StatusError:
		fmt.Fprintf(&sb, "[sandbox error: %s]", r.Reason)
	default:
		fmt.Fprintf(&sb, "[%s]", r.Status)
	}
	return sb.String()
}

// EventKind discriminates Events.
type EventKind string

const (
	EventStart  EventKind = "start"
	EventOutput EventKind = "output"
	EventEnd    EventKind = "end"
)

// Event reports progress of an approved run. Events of one run are
// delivered in order from a single goroutine.
type Event struct {
	Kind       EventKind
	RunID      string
	ToolCallID string

	// Start
	Command string
	Cwd     string
	Root    string

	// Output
	Chunk Chunk

	// End
	Status    Status
	ExitCode  int
	Signal    string
	Duration  time.Duration
	Truncated bool
}
