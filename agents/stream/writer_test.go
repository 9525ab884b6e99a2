/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package stream_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/stream"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSink records events and can be told to start failing.
type sliceSink struct {
	mu     sync.Mutex
	events []stream.Event
	failAt int
	delay  time.Duration
}

func (s *sliceSink) Write(_ context.Context, ev stream.Event) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.events)+1 >= s.failAt {
		return errors.New("broken pipe")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *sliceSink) snapshot() []stream.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stream.Event(nil), s.events...)
}

func TestWriterPreservesOrder(t *testing.T) {
	t.Parallel()

	sink := &sliceSink{}
	w := stream.NewWriter(context.Background(), sink, stream.WithHeartbeat(0))
	defer w.Close()

	for i := range 50 {
		require.NoError(t, w.Emit(context.Background(), stream.Status(fmt.Sprint(i))))
	}
	got := sink.snapshot()
	require.Len(t, got, 50)
	for i, ev := range got {
		assert.Equal(t, fmt.Sprint(i), ev.Message)
	}
}

func TestWriterSerializesConcurrentEmits(t *testing.T) {
	t.Parallel()

	sink := &sliceSink{delay: time.Millisecond}
	w := stream.NewWriter(context.Background(), sink, stream.WithHeartbeat(5*time.Millisecond))
	defer w.Close()

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				assert.NoError(t, w.Emit(context.Background(), stream.Status(fmt.Sprintf("%d-%d", g, i))))
			}
		}()
	}
	wg.Wait()

	// Each producer's events stay in its own order, and pings are interleaved
	// whole events rather than corrupting anything.
	next := map[string]int{}
	statuses, pings := 0, 0
	for _, ev := range sink.snapshot() {
		switch ev.Type {
		case stream.TypePing:
			pings++
			assert.NotZero(t, ev.Timestamp)
		case stream.TypeStatus:
			statuses++
			g, i, _ := strings.Cut(ev.Message, "-")
			assert.Equal(t, fmt.Sprint(next[g]), i, "producer %s out of order", g)
			next[g]++
		}
	}
	assert.Equal(t, 40, statuses)
	assert.Positive(t, pings)
}

func TestWriterDisconnect(t *testing.T) {
	t.Parallel()

	var dropped error
	sink := &sliceSink{failAt: 2}
	w := stream.NewWriter(context.Background(), sink, stream.WithHeartbeat(0), stream.OnDisconnect(func(err error) { dropped = err }))
	defer w.Close()

	require.NoError(t, w.Emit(context.Background(), stream.Status("one")))
	err := w.Emit(context.Background(), stream.Status("two"))
	assert.ErrorIs(t, err, stream.ErrClientDisconnected)
	assert.ErrorIs(t, w.Emit(context.Background(), stream.Status("three")), stream.ErrClientDisconnected)
	assert.ErrorIs(t, dropped, stream.ErrClientDisconnected)

	select {
	case <-w.Disconnected():
	default:
		t.Error("Disconnected() not closed")
	}
	assert.Len(t, sink.snapshot(), 1)
}

func TestWriterContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	w := stream.NewWriter(ctx, &sliceSink{}, stream.WithHeartbeat(0))
	defer w.Close()

	cancel()
	<-w.Disconnected()
	assert.ErrorIs(t, w.Emit(context.Background(), stream.Status("late")), stream.ErrClientDisconnected)
}

func TestWriterClose(t *testing.T) {
	t.Parallel()

	w := stream.NewWriter(context.Background(), &sliceSink{}, stream.WithHeartbeat(0))
	w.Close()
	w.Close()
	assert.ErrorIs(t, w.Emit(context.Background(), stream.Status("late")), stream.ErrClosed)
}

func TestSSESink(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	sink := stream.NewSSESink(rec)
	step := executor.Step{
		Index:     0,
		ToolCalls: []toolcall.ToolCall{{ID: "c1", Name: "submit_summary", Args: map[string]any{"report": "LGTM"}}},
	}
	require.NoError(t, sink.Write(context.Background(), stream.StepEvent(step)))
	require.NoError(t, sink.Write(context.Background(), stream.Complete("LGTM", nil, nil)))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)

	var types []string
	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		require.True(t, ok, "unexpected line %q", line)
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(data), &ev))
		types = append(types, ev["type"].(string))
		if ev["type"] == "complete" {
			assert.Equal(t, "LGTM", ev["result"])
		}
	}
	assert.Equal(t, []string{"step", "complete"}, types)
}

func TestSandboxRunEvents(t *testing.T) {
	t.Parallel()

	end := stream.SandboxRun(sandbox.Event{Kind: sandbox.EventEnd, RunID: "r", Status: sandbox.StatusNonzero, ExitCode: 0, Duration: 1500 * time.Millisecond})
	assert.Equal(t, stream.TypeSandboxRunEnd, end.Type)
	require.NotNil(t, end.ExitCode)
	assert.Equal(t, 0, *end.ExitCode)
	assert.Equal(t, int64(1500), end.DurationMS)

	out := stream.SandboxRun(sandbox.Event{Kind: sandbox.EventOutput, RunID: "r", Chunk: sandbox.Chunk{Stream: sandbox.StreamStderr, Text: "boom"}})
	assert.Equal(t, stream.TypeSandboxRunOutput, out.Type)
	assert.Equal(t, "stderr", out.Stream)
	assert.Equal(t, "boom", out.Chunk)
}
