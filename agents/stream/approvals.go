/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/google/uuid"
)

// ErrUnknownRequest is returned by Resolve for ids that are not pending.
var ErrUnknownRequest = errors.New("unknown or expired sandbox request")

// DefaultGrace is added to a command's timeout to bound the approval wait.
const DefaultGrace = 30 * time.Second

// Approvals tracks sandbox requests waiting for a decision.
type Approvals struct {
	grace time.Duration

	mu      sync.Mutex
	pending map[string]chan sandbox.Decision
}

// NewApprovals creates an empty registry. A non-positive grace uses DefaultGrace.
func NewApprovals(grace time.Duration) *Approvals {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Approvals{grace: grace, pending: make(map[string]chan sandbox.Decision)}
}

// Confirmer returns a sandbox.Confirmer that asks through em. A request
// with no decision within its timeout plus the grace period is denied.
func (a *Approvals) Confirmer(em Emitter) sandbox.Confirmer {
	return sandbox.ConfirmFunc(func(ctx context.Context, req sandbox.Request) (sandbox.Decision, error) {
		id := uuid.NewString()
		ch := make(chan sandbox.Decision, 1)

		a.mu.Lock()
		a.pending[id] = ch
		a.mu.Unlock()
		defer a.forget(id)

		if err := em.Emit(ctx, SandboxRequest(id, req)); err != nil {
			return sandbox.Decision{}, err
		}

		wait := req.Timeout + a.grace
		clog.FromContext(ctx).With("request_id", id).Infof("Waiting up to %v for sandbox approval", wait)
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case d := <-ch:
			return d, nil
		case <-timer.C:
			return sandbox.Decision{Reason: fmt.Sprintf("no decision received within %v", wait)}, nil
		case <-ctx.Done():
			return sandbox.Decision{}, context.Cause(ctx)
		}
	})
}

// Resolve delivers a decision for a pending request.
func (a *Approvals) Resolve(requestID string, approved bool, reason string) error {
	a.mu.Lock()
	ch, ok := a.pending[requestID]
	delete(a.pending, requestID)
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, requestID)
	}
	if !approved && reason == "" {
		reason = "denied by reviewer"
	}
	ch <- sandbox.Decision{Approved: approved, Reason: reason}
	return nil
}

// Pending is the number of requests awaiting a decision.
func (a *Approvals) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Approvals) forget(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, id)
}
