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
)

var (
	// ErrClientDisconnected is returned by Emit once the stream is dead.
	ErrClientDisconnected = errors.New("client disconnected")

	// ErrClosed is returned by Emit after Close.
	ErrClosed = errors.New("stream closed")
)

// DefaultHeartbeat is the ping interval of a Writer.
const DefaultHeartbeat = 15 * time.Second

// Sink writes a single event to the transport.
type Sink interface {
	Write(ctx context.Context, ev Event) error
}

type request struct {
	ev     Event
	result chan error
}

// Writer serializes events onto a Sink from one goroutine.
type Writer struct {
	sink      Sink
	heartbeat time.Duration
	onDrop    func(error)

	requests chan request
	quit     chan struct{}
	stopped  chan struct{}
	dead     chan struct{}

	closeOnce sync.Once
	deadOnce  sync.Once
	mu        sync.Mutex
	cause     error
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithHeartbeat sets the ping interval; zero disables pings.
func WithHeartbeat(d time.Duration) WriterOption {
	return func(w *Writer) { w.heartbeat = d }
}

// OnDisconnect registers a callback invoked once when the stream dies.
func OnDisconnect(f func(error)) WriterOption {
	return func(w *Writer) { w.onDrop = f }
}

// NewWriter starts a Writer. It dies when ctx is done (for a server, the
// request context) or on the first failed write. Call Close when done.
func NewWriter(ctx context.Context, sink Sink, opts ...WriterOption) *Writer {
	w := &Writer{
		sink:      sink,
		heartbeat: DefaultHeartbeat,
		requests:  make(chan request),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
		dead:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.loop(ctx)
	return w
}

func (w *Writer) loop(ctx context.Context) {
	defer close(w.stopped)

	var tick <-chan time.Time
	if w.heartbeat > 0 {
		ticker := time.NewTicker(w.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-w.quit:
			return
		case <-ctx.Done():
			w.disconnect(ctx, fmt.Errorf("%w: %w", ErrClientDisconnected, context.Cause(ctx)))
			return
		case r := <-w.requests:
			r.result <- w.write(ctx, r.ev)
		case t := <-tick:
			_ = w.write(ctx, Ping(t))
		}
	}
}

func (w *Writer) write(ctx context.Context, ev Event) error {
	if err := w.Err(); err != nil {
		return err
	}
	if err := w.sink.Write(ctx, ev); err != nil {
		err = fmt.Errorf("%w: %w", ErrClientDisconnected, err)
		w.disconnect(ctx, err)
		return err
	}
	return nil
}

func (w *Writer) disconnect(ctx context.Context, cause error) {
	w.deadOnce.Do(func() {
		w.mu.Lock()
		w.cause = cause
		w.mu.Unlock()
		close(w.dead)
		clog.FromContext(ctx).Warnf("Event stream disconnected: %v", cause)
		if w.onDrop != nil {
			w.onDrop(cause)
		}
	})
}

// Emit writes ev and waits until it has been written.
func (w *Writer) Emit(ctx context.Context, ev Event) error {
	if err := w.Err(); err != nil {
		return err
	}
	r := request{ev: ev, result: make(chan error, 1)}
	select {
	case w.requests <- r:
	case <-w.dead:
		return w.Err()
	case <-w.stopped:
		return ErrClosed
	case <-ctx.Done():
		return context.Cause(ctx)
	}
	return <-r.result
}

// Err returns a non-nil error wrapping ErrClientDisconnected once the
// stream is dead.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cause
}

// Disconnected is closed when the stream dies.
func (w *Writer) Disconnected() <-chan struct{} {
	return w.dead
}

// Close stops the Writer. Pending Emit calls return ErrClosed.
func (w *Writer) Close() {
	w.closeOnce.Do(func() { close(w.quit) })
	<-w.stopped
}
