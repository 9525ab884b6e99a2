/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SSESink writes events as server-sent events, one "data:" line of JSON
// per event, flushing after each.
type SSESink struct {
	w io.Writer
}

// NewSSESink wraps w. If w is an http.ResponseWriter the SSE headers are
// set and sent immediately.
func NewSSESink(w io.Writer) *SSESink {
	if rw, ok := w.(http.ResponseWriter); ok {
		h := rw.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		rw.WriteHeader(http.StatusOK)
	}
	s := &SSESink{w: w}
	s.flush()
	return s
}

// Write implements Sink.
func (s *SSESink) Write(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *SSESink) flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
