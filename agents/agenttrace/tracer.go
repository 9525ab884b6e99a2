/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import "context"

// Tracer creates traces and receives them once complete.
type Tracer interface {
	NewTrace(ctx context.Context, prompt string) *Trace
	RecordTrace(trace *Trace)
}

// ByCode returns a Tracer that hands completed traces to callback.
// A nil callback discards them.
func ByCode(callback func(*Trace)) Tracer {
	return byCode{callback: callback}
}

type byCode struct {
	callback func(*Trace)
}

func (b byCode) NewTrace(ctx context.Context, prompt string) *Trace {
	return newTraceWithTracer(ctx, b, prompt)
}

func (b byCode) RecordTrace(trace *Trace) {
	if b.callback != nil {
		b.callback(trace)
	}
}

type tracerKey struct{}

// WithTracer installs tracer for StartTrace calls made with ctx.
func WithTracer(ctx context.Context, tracer Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, tracer)
}

// TracerFromContext returns the installed tracer, or the default clog tracer.
func TracerFromContext(ctx context.Context) Tracer {
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok && t != nil {
		return t
	}
	return NewDefaultTracer(ctx)
}

// StartTrace begins a trace using the tracer installed in ctx.
func StartTrace(ctx context.Context, prompt string) *Trace {
	return TracerFromContext(ctx).NewTrace(ctx, prompt)
}
