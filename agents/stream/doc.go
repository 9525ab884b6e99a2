/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package stream carries review events to a remote observer.
//
// Events are JSON objects discriminated by their "type" field. A Writer
// owns the underlying Sink from a single goroutine: Emit enqueues an event
// and waits for it to be written, and heartbeat pings are written by the
// same goroutine, so the observer sees events in exactly the order they
// were emitted. The first failed write marks the Writer disconnected and
// every later Emit returns ErrClientDisconnected, which callers use to
// stop doing work nobody will see.
//
// Approvals implements the decision channel for sandbox runs: it emits a
// sandbox_request event and waits for a matching Resolve call, denying the
// run if no decision arrives in time.
package stream
